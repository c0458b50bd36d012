package polarion

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// CredentialType is the fixed key the host stores the credential under.
const CredentialType = "polarionApi"

// AuthMethod selects how requests are authenticated.
type AuthMethod string

const (
	AuthBasic AuthMethod = "basic"
	AuthToken AuthMethod = "token"
)

// Credential holds the connection settings for one Polarion server.
type Credential struct {
	BaseURL        string     `json:"baseUrl" yaml:"baseUrl" validate:"required,url"`
	Authentication AuthMethod `json:"authentication,omitempty" yaml:"authentication,omitempty" validate:"oneof=basic token"`
	Username       string     `json:"username,omitempty" yaml:"username,omitempty" validate:"required_if=Authentication basic"`
	Password       string     `json:"password,omitempty" yaml:"password,omitempty" validate:"required_if=Authentication basic"`
	Token          string     `json:"token,omitempty" yaml:"token,omitempty" validate:"required_if=Authentication token"`
}

// Method returns the configured auth method, defaulting to basic.
func (c *Credential) Method() AuthMethod {
	if c.Authentication == "" {
		return AuthBasic
	}
	return c.Authentication
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the credential against the descriptor's rules. The first
// violation is returned as a *pkgerrors.ValidationError.
func (c *Credential) Validate() error {
	normalized := *c
	normalized.Authentication = c.Method()

	err := validate.Struct(normalized)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &pkgerrors.ValidationError{
		Field:      fe.Field(),
		Message:    describeViolation(fe),
		Suggestion: "Run 'polarion-node credentials describe' to see the expected fields",
	}
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return fmt.Sprintf("is required when authentication is %s", lastWord(fe.Param()))
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[len(fields)-1]
}

// TokenExpiry reads the exp claim of a JWT personal access token without
// verifying its signature. ok is false when there is no token or it carries
// no expiry; err is set when the token is not a JWT.
func (c *Credential) TokenExpiry() (expiry time.Time, ok bool, err error) {
	if c.Token == "" {
		return time.Time{}, false, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("token is not a JWT: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, err
	}
	if exp == nil {
		return time.Time{}, false, nil
	}
	return exp.Time, true, nil
}

// Redacted returns a copy safe to print.
func (c Credential) Redacted() Credential {
	if c.Password != "" {
		c.Password = "[REDACTED]"
	}
	if c.Token != "" {
		c.Token = "[REDACTED]"
	}
	return c
}

// CredentialProperty declares one credential field for form rendering.
type CredentialProperty struct {
	Name        string
	DisplayName string
	Kind        FieldKind
	Description string
	Placeholder string
	Default     string
	Options     []string
	Required    bool
	Secret      bool

	// ShowWhen lists field=value conditions that must all hold for the
	// property to apply.
	ShowWhen map[string]string
}

// Visible reports whether p applies given the values entered so far.
func (p CredentialProperty) Visible(values map[string]string) bool {
	for field, want := range p.ShowWhen {
		got := values[field]
		if got == "" {
			got = defaultFor(field)
		}
		if got != want {
			return false
		}
	}
	return true
}

func defaultFor(field string) string {
	for _, p := range CredentialDescriptor.Properties {
		if p.Name == field {
			return p.Default
		}
	}
	return ""
}

// CredentialTest is the request used to check a stored credential.
type CredentialTest struct {
	Method string
	Path   string
	Limit  int
}

// Descriptor declares the shape of a stored credential.
type Descriptor struct {
	Name        string
	DisplayName string
	Properties  []CredentialProperty
	Test        CredentialTest
}

// CredentialDescriptor is the credential schema of the node.
var CredentialDescriptor = Descriptor{
	Name:        CredentialType,
	DisplayName: "Polarion API",
	Properties: []CredentialProperty{
		{
			Name:        "baseUrl",
			DisplayName: "Base URL",
			Kind:        KindString,
			Description: "REST API root of the Polarion server",
			Placeholder: "https://polarion.example.com/polarion/rest/v1",
			Required:    true,
		},
		{
			Name:        "authentication",
			DisplayName: "Authentication",
			Kind:        KindOptions,
			Options:     []string{string(AuthBasic), string(AuthToken)},
			Default:     string(AuthBasic),
		},
		{
			Name:        "username",
			DisplayName: "Username",
			Kind:        KindString,
			Required:    true,
			ShowWhen:    map[string]string{"authentication": string(AuthBasic)},
		},
		{
			Name:        "password",
			DisplayName: "Password",
			Kind:        KindString,
			Required:    true,
			Secret:      true,
			ShowWhen:    map[string]string{"authentication": string(AuthBasic)},
		},
		{
			Name:        "token",
			DisplayName: "Personal Access Token",
			Kind:        KindString,
			Required:    true,
			Secret:      true,
			ShowWhen:    map[string]string{"authentication": string(AuthToken)},
		},
	},
	Test: CredentialTest{Method: "GET", Path: "/" + string(ResourceProjects), Limit: 1},
}

// CredentialFromValues builds a Credential from descriptor property values.
func CredentialFromValues(values map[string]string) *Credential {
	return &Credential{
		BaseURL:        strings.TrimSpace(values["baseUrl"]),
		Authentication: AuthMethod(values["authentication"]),
		Username:       values["username"],
		Password:       values["password"],
		Token:          values["token"],
	}
}
