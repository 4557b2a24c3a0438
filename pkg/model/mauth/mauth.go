package mauth

import (
	"errors"
	"fmt"
)

type AuthKind int8

const (
	AuthKindNone   AuthKind = 0
	AuthKindBearer AuthKind = 1
	AuthKindBasic  AuthKind = 2
	AuthKindAPIKey AuthKind = 3
	AuthKindOAuth2 AuthKind = 4
	AuthKindOAuth1 AuthKind = 5
	AuthKindJWT    AuthKind = 6
	AuthKindDigest AuthKind = 7
	AuthKindAWSV4  AuthKind = 8
	AuthKindHawk   AuthKind = 9
	AuthKindNTLM   AuthKind = 10
	AuthKindCustom AuthKind = 11
)

var kindNames = map[AuthKind]string{
	AuthKindNone:   "noauth",
	AuthKindBearer: "bearer",
	AuthKindBasic:  "basic",
	AuthKindAPIKey: "apikey",
	AuthKindOAuth2: "oauth2",
	AuthKindOAuth1: "oauth1",
	AuthKindJWT:    "jwt",
	AuthKindDigest: "digest",
	AuthKindAWSV4:  "awsv4",
	AuthKindHawk:   "hawk",
	AuthKindNTLM:   "ntlm",
	AuthKindCustom: "custom",
}

func (k AuthKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("authkind(%d)", int8(k))
}

func KindFromString(s string) (AuthKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return AuthKindNone, false
}

var (
	ErrVariantMismatch = errors.New("mauth: active variant does not match kind")
	ErrMissingVariant  = errors.New("mauth: kind has no variant data")
)

// APIKeyLocation selects where an apikey credential is injected.
type APIKeyLocation int8

const (
	APIKeyInHeader APIKeyLocation = 0
	APIKeyInQuery  APIKeyLocation = 1
)

type BearerAuth struct {
	Token string
}

type BasicAuth struct {
	Username string
	Password string
}

type APIKeyAuth struct {
	Key   string
	Value string
	In    APIKeyLocation
}

type OAuth2Auth struct {
	AccessToken  string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
}

// JWTAuth carries either a literal token or signing material. When Secret is
// non-empty an HS256 token is signed from Payload at processing time.
type JWTAuth struct {
	Token   string
	Prefix  string
	Secret  string
	Payload map[string]any
}

type CustomAuth struct {
	HeaderName  string
	HeaderValue string
}

// The five schemes below are carried through the data model but the processor
// does not implement them yet; their parameters are kept so nothing is lost
// on round-trips.

type OAuth1Auth struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
	SignatureType  string
}

type DigestAuth struct {
	Username string
	Password string
	Realm    string
}

type AWSV4Auth struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string
}

type HawkAuth struct {
	AuthID    string
	AuthKey   string
	Algorithm string
}

type NTLMAuth struct {
	Username string
	Password string
	Domain   string
}

// Auth is a tagged union: Kind selects which variant pointer is active.
// Use New* constructors or Validate to keep the tag and the variant in sync.
type Auth struct {
	Kind AuthKind

	Bearer *BearerAuth
	Basic  *BasicAuth
	APIKey *APIKeyAuth
	OAuth2 *OAuth2Auth
	OAuth1 *OAuth1Auth
	JWT    *JWTAuth
	Digest *DigestAuth
	AWSV4  *AWSV4Auth
	Hawk   *HawkAuth
	NTLM   *NTLMAuth
	Custom *CustomAuth
}

func NewNone() *Auth { return &Auth{Kind: AuthKindNone} }

func NewBearer(token string) *Auth {
	return &Auth{Kind: AuthKindBearer, Bearer: &BearerAuth{Token: token}}
}

func NewBasic(username, password string) *Auth {
	return &Auth{Kind: AuthKindBasic, Basic: &BasicAuth{Username: username, Password: password}}
}

func NewAPIKey(key, value string, in APIKeyLocation) *Auth {
	return &Auth{Kind: AuthKindAPIKey, APIKey: &APIKeyAuth{Key: key, Value: value, In: in}}
}

func NewOAuth2(o OAuth2Auth) *Auth {
	return &Auth{Kind: AuthKindOAuth2, OAuth2: &o}
}

func NewJWT(j JWTAuth) *Auth {
	return &Auth{Kind: AuthKindJWT, JWT: &j}
}

func NewCustom(headerName, headerValue string) *Auth {
	return &Auth{Kind: AuthKindCustom, Custom: &CustomAuth{HeaderName: headerName, HeaderValue: headerValue}}
}

// Validate checks the tag/variant pairing. Exactly the variant named by Kind
// must be set; every other variant pointer must be nil.
func (a *Auth) Validate() error {
	variants := map[AuthKind]bool{
		AuthKindBearer: a.Bearer != nil,
		AuthKindBasic:  a.Basic != nil,
		AuthKindAPIKey: a.APIKey != nil,
		AuthKindOAuth2: a.OAuth2 != nil,
		AuthKindOAuth1: a.OAuth1 != nil,
		AuthKindJWT:    a.JWT != nil,
		AuthKindDigest: a.Digest != nil,
		AuthKindAWSV4:  a.AWSV4 != nil,
		AuthKindHawk:   a.Hawk != nil,
		AuthKindNTLM:   a.NTLM != nil,
		AuthKindCustom: a.Custom != nil,
	}

	for kind, set := range variants {
		if kind == a.Kind {
			if !set {
				return fmt.Errorf("%w: %s", ErrMissingVariant, a.Kind)
			}
			continue
		}
		if set {
			return fmt.Errorf("%w: kind %s but %s variant set", ErrVariantMismatch, a.Kind, kind)
		}
	}
	return nil
}

// Clone returns a deep copy so scripts can mutate auth without aliasing the
// caller's descriptor.
func (a *Auth) Clone() *Auth {
	if a == nil {
		return nil
	}
	out := &Auth{Kind: a.Kind}
	if a.Bearer != nil {
		cp := *a.Bearer
		out.Bearer = &cp
	}
	if a.Basic != nil {
		cp := *a.Basic
		out.Basic = &cp
	}
	if a.APIKey != nil {
		cp := *a.APIKey
		out.APIKey = &cp
	}
	if a.OAuth2 != nil {
		cp := *a.OAuth2
		out.OAuth2 = &cp
	}
	if a.OAuth1 != nil {
		cp := *a.OAuth1
		out.OAuth1 = &cp
	}
	if a.JWT != nil {
		cp := *a.JWT
		if a.JWT.Payload != nil {
			cp.Payload = make(map[string]any, len(a.JWT.Payload))
			for k, v := range a.JWT.Payload {
				cp.Payload[k] = v
			}
		}
		out.JWT = &cp
	}
	if a.Digest != nil {
		cp := *a.Digest
		out.Digest = &cp
	}
	if a.AWSV4 != nil {
		cp := *a.AWSV4
		out.AWSV4 = &cp
	}
	if a.Hawk != nil {
		cp := *a.Hawk
		out.Hawk = &cp
	}
	if a.NTLM != nil {
		cp := *a.NTLM
		out.NTLM = &cp
	}
	if a.Custom != nil {
		cp := *a.Custom
		out.Custom = &cp
	}
	return out
}
