package polarion

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

func TestCredential_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cred      Credential
		wantField string
	}{
		{
			name: "basic ok",
			cred: Credential{BaseURL: "https://alm.example.com/polarion/rest/v1", Authentication: AuthBasic, Username: "u", Password: "p"},
		},
		{
			name: "basic is the default",
			cred: Credential{BaseURL: "https://alm.example.com", Username: "u", Password: "p"},
		},
		{
			name: "token ok",
			cred: Credential{BaseURL: "https://alm.example.com", Authentication: AuthToken, Token: "pat"},
		},
		{
			name:      "missing base url",
			cred:      Credential{Authentication: AuthToken, Token: "pat"},
			wantField: "baseUrl",
		},
		{
			name:      "malformed base url",
			cred:      Credential{BaseURL: "not a url", Authentication: AuthToken, Token: "pat"},
			wantField: "baseUrl",
		},
		{
			name:      "unknown auth method",
			cred:      Credential{BaseURL: "https://alm.example.com", Authentication: "ntlm"},
			wantField: "authentication",
		},
		{
			name:      "basic without password",
			cred:      Credential{BaseURL: "https://alm.example.com", Username: "u"},
			wantField: "password",
		},
		{
			name:      "token without token",
			cred:      Credential{BaseURL: "https://alm.example.com", Authentication: AuthToken, Username: "u"},
			wantField: "token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cred.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var valErr *pkgerrors.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.wantField, valErr.Field)
		})
	}
}

func TestCredential_TokenExpiry(t *testing.T) {
	exp := time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "jdoe",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	got, ok, err := (&Credential{Token: signed}).TokenExpiry()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(exp))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "jdoe"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok, err = (&Credential{Token: noExp}).TokenExpiry()
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = (&Credential{Token: "opaque-token"}).TokenExpiry()
	assert.Error(t, err)
	assert.False(t, ok)

	_, ok, err = (&Credential{}).TokenExpiry()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCredential_Redacted(t *testing.T) {
	cred := Credential{BaseURL: "https://x", Username: "u", Password: "p", Token: "t"}
	red := cred.Redacted()
	assert.Equal(t, "[REDACTED]", red.Password)
	assert.Equal(t, "[REDACTED]", red.Token)
	assert.Equal(t, "u", red.Username)
	assert.Equal(t, "p", cred.Password, "original untouched")
}

func TestCredentialDescriptor(t *testing.T) {
	assert.Equal(t, "polarionApi", CredentialDescriptor.Name)

	visible := func(values map[string]string) []string {
		var names []string
		for _, p := range CredentialDescriptor.Properties {
			if p.Visible(values) {
				names = append(names, p.Name)
			}
		}
		return names
	}

	assert.Equal(t, []string{"baseUrl", "authentication", "username", "password"}, visible(map[string]string{}))
	assert.Equal(t, []string{"baseUrl", "authentication", "token"}, visible(map[string]string{"authentication": "token"}))

	cred := CredentialFromValues(map[string]string{"baseUrl": " https://x ", "authentication": "token", "token": "t"})
	assert.Equal(t, "https://x", cred.BaseURL)
	assert.Equal(t, AuthToken, cred.Method())
}

func TestFieldsFor(t *testing.T) {
	names := func(fields []Field) []string {
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = f.Name
		}
		return out
	}

	assert.Equal(t,
		[]string{FieldResource, FieldOperation, FieldQuery, FieldFields, FieldLimit, FieldSkip},
		names(FieldsFor(ResourceWorkItems, OperationList)))
	assert.Equal(t,
		[]string{FieldResource, FieldOperation, FieldDocumentID, FieldData},
		names(FieldsFor(ResourceDocuments, OperationUpdate)))
	assert.Equal(t,
		[]string{FieldResource, FieldOperation, FieldResourceID},
		names(FieldsFor(ResourceApprovals, OperationDelete)))
	assert.Equal(t,
		[]string{FieldResource, FieldOperation, FieldData},
		names(FieldsFor(ResourceTestSteps, OperationCreate)))

	// every identifier field the router reads is declared for its resource
	for _, resource := range Resources {
		idField := routes[resource].idField
		found := false
		for _, f := range FieldsFor(resource, OperationGet) {
			if f.Name == idField {
				found = true
			}
		}
		assert.True(t, found, "%s: %s not declared", resource, idField)
	}
}
