// Package authproc turns an auth descriptor plus resolved variables into the
// concrete headers and query parameters a transfer needs.
package authproc

import (
	"encoding/base64"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"apiclient-backend/pkg/credvault"
	"apiclient-backend/pkg/model/mauth"
	"apiclient-backend/pkg/varsystem"
)

const (
	HeaderAuthorization = "Authorization"
	DefaultJWTPrefix    = "Bearer"
)

// Result is the auth contribution to a prepared request. Headers win over
// request headers on key collision; query params are appended to the URL.
type Result struct {
	Headers     map[string]string
	QueryParams map[string]string
}

func emptyResult() Result {
	return Result{Headers: map[string]string{}, QueryParams: map[string]string{}}
}

// Processor resolves auth parameters and emits headers/query params. OAuth2
// processing additionally reads and writes the credential store's token
// cache; everything else is pure.
type Processor struct {
	store  *credvault.Store
	logger *slog.Logger
}

func New(store *credvault.Store, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{store: store, logger: logger}
}

// Supported reports whether a scheme produces an auth contribution.
// The five unsupported schemes process as warn-logged no-ops; callers that
// want a hard error at configuration time can pre-flight with this.
func Supported(kind mauth.AuthKind) bool {
	switch kind {
	case mauth.AuthKindOAuth1, mauth.AuthKindDigest, mauth.AuthKindAWSV4,
		mauth.AuthKindHawk, mauth.AuthKindNTLM:
		return false
	default:
		return true
	}
}

// Process maps one descriptor to its header/query contribution. A nil or
// noauth descriptor contributes nothing. Unsupported schemes contribute
// nothing and log a warning; they are a known-incomplete feature, not an
// error.
func (p *Processor) Process(auth *mauth.Auth, varCtx varsystem.VarContext) Result {
	result := emptyResult()
	if auth == nil || auth.Kind == mauth.AuthKindNone {
		return result
	}

	resolved := varCtx.ResolveAuth(auth)

	switch resolved.Kind {
	case mauth.AuthKindBearer:
		if resolved.Bearer != nil && resolved.Bearer.Token != "" {
			result.Headers[HeaderAuthorization] = "Bearer " + resolved.Bearer.Token
		}
	case mauth.AuthKindBasic:
		if resolved.Basic != nil {
			cred := resolved.Basic.Username + ":" + resolved.Basic.Password
			result.Headers[HeaderAuthorization] = "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
		}
	case mauth.AuthKindAPIKey:
		if resolved.APIKey != nil && resolved.APIKey.Key != "" {
			if resolved.APIKey.In == mauth.APIKeyInQuery {
				result.QueryParams[resolved.APIKey.Key] = resolved.APIKey.Value
			} else {
				result.Headers[resolved.APIKey.Key] = resolved.APIKey.Value
			}
		}
	case mauth.AuthKindJWT:
		p.processJWT(resolved.JWT, &result)
	case mauth.AuthKindOAuth2:
		p.processOAuth2(resolved.OAuth2, &result)
	case mauth.AuthKindCustom:
		if resolved.Custom != nil {
			name := resolved.Custom.HeaderName
			if name == "" {
				name = HeaderAuthorization
			}
			result.Headers[name] = resolved.Custom.HeaderValue
		}
	default:
		p.logger.Warn("auth scheme not implemented, skipping", "scheme", resolved.Kind.String())
	}

	return result
}

func (p *Processor) processJWT(auth *mauth.JWTAuth, result *Result) {
	if auth == nil {
		return
	}
	prefix := auth.Prefix
	if prefix == "" {
		prefix = DefaultJWTPrefix
	}

	token := auth.Token
	if auth.Secret != "" {
		signed, err := signHS256(auth.Secret, auth.Payload)
		if err != nil {
			p.logger.Warn("jwt signing failed, falling back to literal token", "error", err)
		} else {
			token = signed
		}
	}
	if token == "" {
		return
	}
	result.Headers[HeaderAuthorization] = prefix + " " + token
}

func signHS256(secret string, payload map[string]any) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (p *Processor) processOAuth2(auth *mauth.OAuth2Auth, result *Result) {
	if auth == nil {
		return
	}

	// Prefer a cached token for the resolved client id.
	if p.store != nil && auth.ClientID != "" {
		if token, ok := p.store.GetOAuth2Token(auth.ClientID); ok && token.AccessToken != "" {
			tokenType := token.TokenType
			if tokenType == "" {
				tokenType = "Bearer"
			}
			result.Headers[HeaderAuthorization] = tokenType + " " + token.AccessToken
			return
		}
	}

	// Fall back to the literal access token and cache it for reuse.
	if auth.AccessToken == "" {
		p.logger.Warn("oauth2 auth has no cached token and no literal access token", "clientId", auth.ClientID)
		return
	}
	result.Headers[HeaderAuthorization] = "Bearer " + auth.AccessToken
	if p.store != nil && auth.ClientID != "" {
		if err := p.store.StoreOAuth2Token(auth.ClientID, credvault.OAuth2Token{
			AccessToken: auth.AccessToken,
			TokenType:   "Bearer",
		}); err != nil {
			p.logger.Warn("failed to cache oauth2 token", "clientId", auth.ClientID, "error", err)
		}
	}
}
