package mauth

import (
	"fmt"
	"strings"
)

// Param is one entry of the schema-free parameter list the editing surface
// stores per scheme. Only specific keys are interpreted; unknown keys are
// ignored rather than rejected.
type Param struct {
	Key   string
	Value string
	Type  string
}

func paramLookup(params []Param) map[string]string {
	m := make(map[string]string, len(params))
	for _, p := range params {
		if _, ok := m[p.Key]; !ok {
			m[p.Key] = p.Value
		}
	}
	return m
}

// FromParams builds a validated Auth from a scheme tag and its raw parameter
// list. Values may still contain {{var}} templates; resolution happens later
// in the processor.
func FromParams(kind AuthKind, params []Param) (*Auth, error) {
	m := paramLookup(params)

	switch kind {
	case AuthKindNone:
		return NewNone(), nil
	case AuthKindBearer:
		return NewBearer(m["token"]), nil
	case AuthKindBasic:
		return NewBasic(m["username"], m["password"]), nil
	case AuthKindAPIKey:
		in := APIKeyInHeader
		if strings.EqualFold(m["in"], "query") {
			in = APIKeyInQuery
		}
		return NewAPIKey(m["key"], m["value"], in), nil
	case AuthKindOAuth2:
		return NewOAuth2(OAuth2Auth{
			AccessToken:  m["accessToken"],
			ClientID:     m["clientId"],
			ClientSecret: m["clientSecret"],
			TokenURL:     m["tokenUrl"],
			Scope:        m["scope"],
		}), nil
	case AuthKindJWT:
		return NewJWT(JWTAuth{
			Token:  m["token"],
			Prefix: m["prefix"],
			Secret: m["secret"],
		}), nil
	case AuthKindCustom:
		return NewCustom(m["headerName"], m["headerValue"]), nil
	case AuthKindOAuth1:
		return &Auth{Kind: kind, OAuth1: &OAuth1Auth{
			ConsumerKey:    m["consumerKey"],
			ConsumerSecret: m["consumerSecret"],
			Token:          m["token"],
			TokenSecret:    m["tokenSecret"],
			SignatureType:  m["signatureMethod"],
		}}, nil
	case AuthKindDigest:
		return &Auth{Kind: kind, Digest: &DigestAuth{
			Username: m["username"],
			Password: m["password"],
			Realm:    m["realm"],
		}}, nil
	case AuthKindAWSV4:
		return &Auth{Kind: kind, AWSV4: &AWSV4Auth{
			AccessKey: m["accessKey"],
			SecretKey: m["secretKey"],
			Region:    m["region"],
			Service:   m["service"],
		}}, nil
	case AuthKindHawk:
		return &Auth{Kind: kind, Hawk: &HawkAuth{
			AuthID:    m["authId"],
			AuthKey:   m["authKey"],
			Algorithm: m["algorithm"],
		}}, nil
	case AuthKindNTLM:
		return &Auth{Kind: kind, NTLM: &NTLMAuth{
			Username: m["username"],
			Password: m["password"],
			Domain:   m["domain"],
		}}, nil
	default:
		return nil, fmt.Errorf("mauth: unknown auth kind %d", int8(kind))
	}
}
