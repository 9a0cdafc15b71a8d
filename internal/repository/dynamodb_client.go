package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"spirolink-backend/internal/domain"
)

const (
	pkPrefixUser  = "USER#"
	pkPrefixEmail = "EMAIL#"
	skProfile     = "PROFILE"
	skLogin       = "LOGIN"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores logins and profile documents in a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func userPK(uid string) string {
	return pkPrefixUser + uid
}

func emailPK(email string) string {
	return pkPrefixEmail + email
}

// CreateAccount writes the login and the profile in one transaction. Either
// record already existing fails the whole write with domain.ErrEmailTaken.
func (c *Client) CreateAccount(ctx context.Context, login domain.Login, profile domain.Profile) error {
	if login.Email == "" || login.UID == "" {
		return errors.New("repository: CreateAccount: email and uid are required")
	}
	if profile.UID != login.UID {
		return errors.New("repository: CreateAccount: profile uid does not match login")
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                loginItem(login),
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                profileItem(profile),
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
		},
	})
	if err != nil {
		if isConditionalCancel(err) {
			return fmt.Errorf("repository: CreateAccount: %w", domain.ErrEmailTaken)
		}
		return fmt.Errorf("repository: CreateAccount: %w", err)
	}
	return nil
}

// GetLogin returns the login stored for email. Reads are consistent so a
// sign-in right after sign-up sees the new login.
func (c *Client) GetLogin(ctx context.Context, email string) (domain.Login, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            itemKey(emailPK(email), skLogin),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Login{}, false, fmt.Errorf("repository: GetLogin get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Login{}, false, nil
	}
	login, err := itemToLogin(out.Item)
	if err != nil {
		return domain.Login{}, false, fmt.Errorf("repository: GetLogin decode: %w", err)
	}
	return login, true, nil
}

// GetProfile returns the profile document for uid.
func (c *Client) GetProfile(ctx context.Context, uid string) (domain.Profile, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            itemKey(userPK(uid), skProfile),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("repository: GetProfile get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Profile{}, false, nil
	}
	profile, err := itemToProfile(out.Item)
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("repository: GetProfile decode: %w", err)
	}
	return profile, true, nil
}

// UpdateProfile sets the provided fields on an existing profile and returns
// the merged document. A missing profile reports found=false.
func (c *Client) UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.Profile, bool, error) {
	var sets []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if update.Name != nil {
		sets = append(sets, "#name = :name")
		names["#name"] = "name"
		values[":name"] = &types.AttributeValueMemberS{Value: *update.Name}
	}
	if update.Phone != nil {
		sets = append(sets, "#phone = :phone")
		names["#phone"] = "phone"
		values[":phone"] = &types.AttributeValueMemberS{Value: *update.Phone}
	}
	if len(sets) == 0 {
		return domain.Profile{}, false, errors.New("repository: UpdateProfile: nothing to update")
	}

	out, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.tableName),
		Key:                       itemKey(userPK(uid), skProfile),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, fmt.Errorf("repository: UpdateProfile: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return domain.Profile{}, false, errors.New("repository: UpdateProfile: no attributes returned")
	}
	profile, err := itemToProfile(out.Attributes)
	if err != nil {
		return domain.Profile{}, false, fmt.Errorf("repository: UpdateProfile decode: %w", err)
	}
	return profile, true, nil
}

func isConditionalCancel(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, r := range tce.CancellationReasons {
		if aws.ToString(r.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func loginItem(login domain.Login) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: emailPK(login.Email)},
		"SK":           &types.AttributeValueMemberS{Value: skLogin},
		"email":        &types.AttributeValueMemberS{Value: login.Email},
		"uid":          &types.AttributeValueMemberS{Value: login.UID},
		"passwordHash": &types.AttributeValueMemberS{Value: login.PasswordHash},
	}
}

func profileItem(p domain.Profile) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: userPK(p.UID)},
		"SK":        &types.AttributeValueMemberS{Value: skProfile},
		"uid":       &types.AttributeValueMemberS{Value: p.UID},
		"email":     &types.AttributeValueMemberS{Value: p.Email},
		"name":      &types.AttributeValueMemberS{Value: p.Name},
		"phone":     &types.AttributeValueMemberS{Value: p.Phone},
		"role":      &types.AttributeValueMemberS{Value: p.Role},
		"createdAt": &types.AttributeValueMemberS{Value: p.CreatedAt.UTC().Format(time.RFC3339Nano)},
	}
}

func itemToLogin(item map[string]types.AttributeValue) (domain.Login, error) {
	email, err := strAttr(item, "email")
	if err != nil {
		return domain.Login{}, err
	}
	uid, err := strAttr(item, "uid")
	if err != nil {
		return domain.Login{}, err
	}
	hash, err := strAttr(item, "passwordHash")
	if err != nil {
		return domain.Login{}, err
	}
	return domain.Login{Email: email, UID: uid, PasswordHash: hash}, nil
}

func itemToProfile(item map[string]types.AttributeValue) (domain.Profile, error) {
	uid, err := strAttr(item, "uid")
	if err != nil {
		return domain.Profile{}, err
	}
	email, err := strAttr(item, "email")
	if err != nil {
		return domain.Profile{}, err
	}
	rawCreated, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.Profile{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rawCreated)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("repository: parse attribute %q: %w", "createdAt", err)
	}
	name, _ := strAttr(item, "name")   // allow empty
	phone, _ := strAttr(item, "phone") // allow empty
	role, _ := strAttr(item, "role")
	if role == "" {
		role = domain.DefaultRole
	}

	return domain.Profile{
		UID:       uid,
		Email:     email,
		Name:      name,
		Phone:     phone,
		Role:      role,
		CreatedAt: createdAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
