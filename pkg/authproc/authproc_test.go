package authproc_test

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiclient-backend/pkg/authproc"
	"apiclient-backend/pkg/credvault"
	"apiclient-backend/pkg/logger/mocklogger"
	"apiclient-backend/pkg/model/mauth"
	"apiclient-backend/pkg/varsystem"
)

func TestBearerHeaderShape(t *testing.T) {
	p := authproc.New(nil, mocklogger.NewMockLogger())
	auth := mauth.NewBearer("{{token}}")
	varCtx := varsystem.NewVarContext(nil, map[string]string{"token": "abc123"}, nil, nil)

	result := p.Process(auth, varCtx)
	assert.Equal(t, "Bearer abc123", result.Headers[authproc.HeaderAuthorization])
	assert.Empty(t, result.QueryParams)
}

func TestBasicEncodesCredentials(t *testing.T) {
	p := authproc.New(nil, mocklogger.NewMockLogger())
	auth := mauth.NewBasic("user", "pa:ss")

	result := p.Process(auth, varsystem.NewVarContext(nil, nil, nil, nil))
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pa:ss"))
	assert.Equal(t, want, result.Headers[authproc.HeaderAuthorization])
}

func TestAPIKeyRouting(t *testing.T) {
	p := authproc.New(nil, mocklogger.NewMockLogger())
	varCtx := varsystem.NewVarContext(nil, nil, nil, nil)

	header := mauth.NewAPIKey("X-Api-Key", "secret", mauth.APIKeyInHeader)
	result := p.Process(header, varCtx)
	assert.Equal(t, "secret", result.Headers["X-Api-Key"])
	assert.Empty(t, result.QueryParams)

	query := mauth.NewAPIKey("api_key", "secret", mauth.APIKeyInQuery)
	result = p.Process(query, varCtx)
	assert.Equal(t, "secret", result.QueryParams["api_key"])
	assert.Empty(t, result.Headers)
}

func TestJWTDefaultPrefix(t *testing.T) {
	p := authproc.New(nil, mocklogger.NewMockLogger())
	auth := mauth.NewJWT(mauth.JWTAuth{Token: "tok"})

	result := p.Process(auth, varsystem.NewVarContext(nil, nil, nil, nil))
	assert.Equal(t, "Bearer tok", result.Headers[authproc.HeaderAuthorization])
}

func TestJWTSignsWhenSecretSet(t *testing.T) {
	p := authproc.New(nil, mocklogger.NewMockLogger())
	auth := mauth.NewJWT(mauth.JWTAuth{
		Prefix:  "JWT",
		Secret:  "topsecret",
		Payload: map[string]any{"sub": "u1"},
	})

	result := p.Process(auth, varsystem.NewVarContext(nil, nil, nil, nil))
	value := result.Headers[authproc.HeaderAuthorization]
	require.True(t, len(value) > 4 && value[:4] == "JWT ")

	parsed, err := jwt.Parse(value[4:], func(t *jwt.Token) (any, error) {
		return []byte("topsecret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "u1", claims["sub"])
}

func TestCustomHeaderDefaultsToAuthorization(t *testing.T) {
	p := authproc.New(nil, mocklogger.NewMockLogger())
	varCtx := varsystem.NewVarContext(nil, nil, nil, nil)

	result := p.Process(mauth.NewCustom("", "Token xyz"), varCtx)
	assert.Equal(t, "Token xyz", result.Headers[authproc.HeaderAuthorization])

	result = p.Process(mauth.NewCustom("X-Session", "s1"), varCtx)
	assert.Equal(t, "s1", result.Headers["X-Session"])
}

func TestOAuth2PrefersCachedToken(t *testing.T) {
	store := credvault.NewStore(nil, credvault.EncryptionNone, mocklogger.NewMockLogger())
	require.NoError(t, store.StoreOAuth2Token("client-1", credvault.OAuth2Token{
		AccessToken: "cached",
		TokenType:   "Bearer",
	}))

	p := authproc.New(store, mocklogger.NewMockLogger())
	auth := mauth.NewOAuth2(mauth.OAuth2Auth{AccessToken: "literal", ClientID: "client-1"})

	result := p.Process(auth, varsystem.NewVarContext(nil, nil, nil, nil))
	assert.Equal(t, "Bearer cached", result.Headers[authproc.HeaderAuthorization])
}

func TestOAuth2FallsBackAndCaches(t *testing.T) {
	store := credvault.NewStore(nil, credvault.EncryptionNone, mocklogger.NewMockLogger())
	p := authproc.New(store, mocklogger.NewMockLogger())
	auth := mauth.NewOAuth2(mauth.OAuth2Auth{AccessToken: "literal-token", ClientID: "client-2"})

	result := p.Process(auth, varsystem.NewVarContext(nil, nil, nil, nil))
	assert.Equal(t, "Bearer literal-token", result.Headers[authproc.HeaderAuthorization])

	cached, ok := store.GetOAuth2Token("client-2")
	require.True(t, ok)
	assert.Equal(t, "literal-token", cached.AccessToken)
}

func TestUnsupportedSchemesAreNoOps(t *testing.T) {
	varCtx := varsystem.NewVarContext(nil, nil, nil, nil)
	kinds := []mauth.AuthKind{
		mauth.AuthKindOAuth1, mauth.AuthKindDigest, mauth.AuthKindAWSV4,
		mauth.AuthKindHawk, mauth.AuthKindNTLM,
	}
	for _, kind := range kinds {
		p := authproc.New(nil, mocklogger.NewMockLogger())
		auth := &mauth.Auth{Kind: kind}

		result := p.Process(auth, varCtx)
		assert.Empty(t, result.Headers, kind.String())
		assert.Empty(t, result.QueryParams, kind.String())
		assert.False(t, authproc.Supported(kind), kind.String())
	}
}

func TestNilAndNoneContributeNothing(t *testing.T) {
	p := authproc.New(nil, mocklogger.NewMockLogger())
	varCtx := varsystem.NewVarContext(nil, nil, nil, nil)

	result := p.Process(nil, varCtx)
	assert.Empty(t, result.Headers)

	result = p.Process(mauth.NewNone(), varCtx)
	assert.Empty(t, result.Headers)
	assert.True(t, authproc.Supported(mauth.AuthKindNone))
}
