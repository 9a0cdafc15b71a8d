// Package app wires configuration into the services both entrypoints serve.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"spirolink-backend/internal/config"
	"spirolink-backend/internal/contact"
	"spirolink-backend/internal/credentials"
	"spirolink-backend/internal/integrations/openai"
	"spirolink-backend/internal/integrations/paramstore"
	"spirolink-backend/internal/logging"
	"spirolink-backend/internal/monitoring"
	"spirolink-backend/internal/repository"
	"spirolink-backend/internal/session"
	"spirolink-backend/internal/usecase"
)

var loadAWSConfig = func(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// App holds the constructed services. Accounts, Contact and Metrics are nil
// when their configuration is absent.
type App struct {
	Relay    *usecase.RelayService
	Accounts *usecase.AccountService
	Contact  *contact.Forwarder
	Metrics  *monitoring.Metrics

	closers []func() error
}

// Build constructs every configured service. AWS configuration is loaded only
// when a parameter-store key or the account store needs it.
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{}
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := loadAWSConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	creds, err := buildCredentials(cfg.OpenAI, loadAWS)
	if err != nil {
		return nil, err
	}
	warnIfUnconfigured(cfg.OpenAI, logger)

	llm := openai.NewClient(openai.WithBaseURL(cfg.OpenAI.BaseURL), openai.WithTimeout(cfg.OpenAI.Timeout))
	if a.Relay, err = usecase.NewRelayService(creds, llm); err != nil {
		return nil, err
	}

	if cfg.Accounts.Enabled() {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		if err := a.buildAccounts(ctx, cfg.Accounts, awsdynamodb.NewFromConfig(c)); err != nil {
			_ = a.Close()
			return nil, err
		}
		logger.Info("account routes enabled", zap.String("table", cfg.Accounts.ProfileTable))
	}

	if cfg.Contact.Enabled() {
		if a.Contact, err = contact.NewForwarder(cfg.Contact.Endpoint, contact.WithTimeout(cfg.Contact.Timeout)); err != nil {
			_ = a.Close()
			return nil, err
		}
		logger.Info("contact route enabled")
	}

	if cfg.Metrics.Enabled {
		a.Metrics = monitoring.NewMetrics()
	}
	return a, nil
}

func buildCredentials(cfg config.OpenAIConfig, loadAWS func() (aws.Config, error)) (usecase.CredentialSource, error) {
	chain := credentials.Chain{credentials.NewEnv(cfg.KeyEnv)}
	if cfg.KeyParam == "" {
		return chain, nil
	}
	c, err := loadAWS()
	if err != nil {
		return nil, err
	}
	ssm, err := paramstore.New(awsssm.NewFromConfig(c))
	if err != nil {
		return nil, err
	}
	param, err := credentials.NewParamStore(ssm, cfg.KeyParam)
	if err != nil {
		return nil, err
	}
	return append(chain, param), nil
}

// warnIfUnconfigured logs when no key is visible at start. Requests still
// re-check, so a key provided later is picked up.
func warnIfUnconfigured(cfg config.OpenAIConfig, logger *logging.Logger) {
	if cfg.KeyParam != "" {
		return
	}
	if strings.TrimSpace(os.Getenv(cfg.KeyEnv)) == "" {
		logger.Warn("completion API key is not set; /chat will answer 500 until it is", zap.String("env", cfg.KeyEnv))
	}
}

func (a *App) buildAccounts(ctx context.Context, cfg config.AccountsConfig, db *awsdynamodb.Client) error {
	store, err := repository.New(db, cfg.ProfileTable)
	if err != nil {
		return err
	}
	rdb, err := session.Dial(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, rdb.Close)

	sessions, err := session.NewManager(rdb, cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	a.Accounts, err = usecase.NewAccountService(store, sessions)
	return err
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
