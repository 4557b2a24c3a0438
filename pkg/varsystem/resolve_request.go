package varsystem

import (
	"apiclient-backend/pkg/model/mauth"
	"apiclient-backend/pkg/model/mrequest"
)

// ResolveRequest applies variable resolution to a request's URL, headers
// (key and value), body fields and auth parameters as one coordinated
// operation. The input is never mutated.
func (c VarContext) ResolveRequest(req mrequest.Request) mrequest.Request {
	out := req.Clone()

	out.URL = c.ReplaceVars(out.URL)

	for i, h := range out.Headers {
		out.Headers[i].Key = c.ReplaceVars(h.Key)
		out.Headers[i].Value = c.ReplaceVars(h.Value)
	}

	switch out.Body.Kind {
	case mrequest.BodyKindRaw:
		out.Body.Raw = c.ReplaceVars(out.Body.Raw)
	case mrequest.BodyKindFormData:
		for i, f := range out.Body.Forms {
			out.Body.Forms[i].Key = c.ReplaceVars(f.Key)
			if !f.IsFile {
				out.Body.Forms[i].Value = c.ReplaceVars(f.Value)
			}
		}
	case mrequest.BodyKindUrlencoded:
		for i, f := range out.Body.UrlEncoded {
			out.Body.UrlEncoded[i].Key = c.ReplaceVars(f.Key)
			out.Body.UrlEncoded[i].Value = c.ReplaceVars(f.Value)
		}
	}

	out.Auth = c.ResolveAuth(out.Auth)
	return out
}

// ResolveAuth resolves every templated parameter of an auth descriptor,
// returning a new descriptor. Nil in, nil out.
func (c VarContext) ResolveAuth(auth *mauth.Auth) *mauth.Auth {
	if auth == nil {
		return nil
	}
	out := auth.Clone()

	switch out.Kind {
	case mauth.AuthKindBearer:
		if out.Bearer != nil {
			out.Bearer.Token = c.ReplaceVars(out.Bearer.Token)
		}
	case mauth.AuthKindBasic:
		if out.Basic != nil {
			out.Basic.Username = c.ReplaceVars(out.Basic.Username)
			out.Basic.Password = c.ReplaceVars(out.Basic.Password)
		}
	case mauth.AuthKindAPIKey:
		if out.APIKey != nil {
			out.APIKey.Key = c.ReplaceVars(out.APIKey.Key)
			out.APIKey.Value = c.ReplaceVars(out.APIKey.Value)
		}
	case mauth.AuthKindOAuth2:
		if out.OAuth2 != nil {
			out.OAuth2.AccessToken = c.ReplaceVars(out.OAuth2.AccessToken)
			out.OAuth2.ClientID = c.ReplaceVars(out.OAuth2.ClientID)
			out.OAuth2.ClientSecret = c.ReplaceVars(out.OAuth2.ClientSecret)
			out.OAuth2.TokenURL = c.ReplaceVars(out.OAuth2.TokenURL)
			out.OAuth2.Scope = c.ReplaceVars(out.OAuth2.Scope)
		}
	case mauth.AuthKindJWT:
		if out.JWT != nil {
			out.JWT.Token = c.ReplaceVars(out.JWT.Token)
			out.JWT.Prefix = c.ReplaceVars(out.JWT.Prefix)
			out.JWT.Secret = c.ReplaceVars(out.JWT.Secret)
		}
	case mauth.AuthKindCustom:
		if out.Custom != nil {
			out.Custom.HeaderName = c.ReplaceVars(out.Custom.HeaderName)
			out.Custom.HeaderValue = c.ReplaceVars(out.Custom.HeaderValue)
		}
	}
	return out
}
