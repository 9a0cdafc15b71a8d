// Package contact validates website contact form submissions and forwards
// them to the external mail relay.
package contact

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// Form is a contact submission from the website.
type Form struct {
	Name        string `json:"name" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone,omitempty" validate:"max=50"`
	Message     string `json:"message" validate:"required,max=5000"`
	ServiceType string `json:"serviceType,omitempty" validate:"max=100"`
}

// normalize trims every field in place.
func (f *Form) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Message = strings.TrimSpace(f.Message)
	f.ServiceType = strings.TrimSpace(f.ServiceType)
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, field := range names {
		parts = append(parts, field+" "+e.Fields[field])
	}
	return "contact: invalid form: " + strings.Join(parts, ", ")
}

// RelayError is returned when the mail relay rejects a submission. Message
// carries the relay's own error text.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("contact: relay returned %d: %s", e.StatusCode, e.Message)
}

type relayErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Forwarder posts validated forms to a single collaborator endpoint.
type Forwarder struct {
	http     *resty.Client
	endpoint string
	validate *validator.Validate
}

type Option func(*Forwarder)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.http.SetTimeout(d)
		}
	}
}

func NewForwarder(endpoint string, opts ...Option) (*Forwarder, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("contact: endpoint must not be empty")
	}
	f := &Forwarder{
		http: resty.New().
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "spirolink-backend/1.0"),
		endpoint: endpoint,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Validate normalizes form and checks it against the field rules.
func (f *Forwarder) Validate(form *Form) error {
	form.normalize()
	err := f.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("contact: validate: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

// Send validates form and forwards it once. There are no retries.
func (f *Forwarder) Send(ctx context.Context, form Form) error {
	if err := f.Validate(&form); err != nil {
		return err
	}

	var errBody relayErrorBody
	resp, err := f.http.R().
		SetContext(ctx).
		SetBody(form).
		SetError(&errBody).
		Post(f.endpoint)
	if err != nil {
		return fmt.Errorf("contact: request failed: %w", err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(errBody.Error)
		if msg == "" {
			msg = strings.TrimSpace(errBody.Message)
		}
		if msg == "" {
			msg = resp.Status()
		}
		return &RelayError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag()
	}
}
