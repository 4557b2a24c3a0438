package mscript

import (
	"apiclient-backend/pkg/logconsole"
	"apiclient-backend/pkg/model/mauth"
)

// RequestSnapshot is the request view handed to a script. It is a copy; the
// worker never shares memory with the execution pipeline.
type RequestSnapshot struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Auth    *mauth.Auth
}

// ResponseSnapshot is present for test scripts only.
type ResponseSnapshot struct {
	Status   int
	Headers  map[string]string
	Body     any
	Duration int64
}

// Context is the full script input: request, optional response, and the
// three variable scopes a script may read or write.
type Context struct {
	Request             RequestSnapshot
	Response            *ResponseSnapshot
	Environment         map[string]string
	Globals             map[string]string
	CollectionVariables map[string]string
}

func (c Context) Clone() Context {
	out := c
	out.Request.Headers = copyMap(c.Request.Headers)
	out.Request.Auth = c.Request.Auth.Clone()
	if c.Response != nil {
		resp := *c.Response
		resp.Headers = copyMap(c.Response.Headers)
		out.Response = &resp
	}
	out.Environment = copyMap(c.Environment)
	out.Globals = copyMap(c.Globals)
	out.CollectionVariables = copyMap(c.CollectionVariables)
	return out
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// UpdateOp makes the clear-versus-leave distinction explicit. The original
// client relied on null-versus-undefined; a two-state optional loses that
// information, so updates carry their own tag.
type UpdateOp int8

const (
	UpdateOpKeep  UpdateOp = 0
	UpdateOpSet   UpdateOp = 1
	UpdateOpClear UpdateOp = 2
)

type FieldUpdate struct {
	Op    UpdateOp
	Value string
}

func Keep() FieldUpdate            { return FieldUpdate{Op: UpdateOpKeep} }
func Set(value string) FieldUpdate { return FieldUpdate{Op: UpdateOpSet, Value: value} }
func Clear() FieldUpdate           { return FieldUpdate{Op: UpdateOpClear} }

// RequestUpdates is the partial overlay a pre-request script may request.
// Headers maps header name to an update op; names absent from the map are
// untouched.
type RequestUpdates struct {
	URL     FieldUpdate
	Method  FieldUpdate
	Body    FieldUpdate
	Headers map[string]FieldUpdate
	Auth    *mauth.Auth
	AuthSet bool
}

func (u *RequestUpdates) Empty() bool {
	if u == nil {
		return true
	}
	return u.URL.Op == UpdateOpKeep &&
		u.Method.Op == UpdateOpKeep &&
		u.Body.Op == UpdateOpKeep &&
		len(u.Headers) == 0 &&
		!u.AuthSet
}

type TestResult struct {
	Name   string
	Passed bool
	Error  string
}

// VarWrites collects pm.environment.set / pm.globals.set /
// pm.collectionVariables.set effects for the caller to persist.
type VarWrites struct {
	Environment         map[string]string
	Globals             map[string]string
	CollectionVariables map[string]string
}

// Result is what the script boundary resolves with. Script failures live in
// Error and the console lines; they are data, never exceptions.
type Result struct {
	Tests   []TestResult
	Console []logconsole.Line
	Error   string
	Updates *RequestUpdates
	Writes  VarWrites
}
