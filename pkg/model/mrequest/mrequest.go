package mrequest

import (
	"apiclient-backend/pkg/model/mauth"
)

type BodyKind int8

const (
	BodyKindNone       BodyKind = 0
	BodyKindRaw        BodyKind = 1
	BodyKindFormData   BodyKind = 2
	BodyKindUrlencoded BodyKind = 3
)

type Header struct {
	Key     string
	Value   string
	Enabled bool
}

type BodyField struct {
	Key     string
	Value   string
	Enabled bool
	// IsFile marks a form-data field whose value is a file path reference.
	// The path is carried as-is; file contents are not materialized here.
	IsFile bool
}

type Body struct {
	Kind       BodyKind
	Raw        string
	Forms      []BodyField
	UrlEncoded []BodyField
}

// Request is the declarative, pre-execution request definition. The URL,
// header and body values may contain {{var}} templates. It is an immutable
// input to the executor; every transformation works on a copy.
type Request struct {
	Method  string
	URL     string
	Headers []Header
	Body    Body
	Auth    *mauth.Auth
}

// Clone deep-copies the request so downstream steps never mutate the
// caller's definition.
func (r Request) Clone() Request {
	out := r
	out.Headers = make([]Header, len(r.Headers))
	copy(out.Headers, r.Headers)
	out.Body.Forms = make([]BodyField, len(r.Body.Forms))
	copy(out.Body.Forms, r.Body.Forms)
	out.Body.UrlEncoded = make([]BodyField, len(r.Body.UrlEncoded))
	copy(out.Body.UrlEncoded, r.Body.UrlEncoded)
	out.Auth = r.Auth.Clone()
	return out
}

// EnabledHeaders filters out disabled rows, preserving order.
func (r Request) EnabledHeaders() []Header {
	active := make([]Header, 0, len(r.Headers))
	for _, h := range r.Headers {
		if h.Enabled {
			active = append(active, h)
		}
	}
	return active
}
