package scriptworker

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"apiclient-backend/pkg/logconsole"
	"apiclient-backend/pkg/model/mauth"
	"apiclient-backend/pkg/model/mscript"
)

// runtime is the mutable state one script execution accumulates. Each
// execution gets a fresh runtime; nothing leaks across calls.
type runtime struct {
	ctx     mscript.Context
	console *logconsole.Console
	tests   []mscript.TestResult
	updates mscript.RequestUpdates
	writes  mscript.VarWrites
}

// evaluate runs a script against its context and returns everything it did
// as data. Scripts are statement-per-line expressions; the first failing
// line stops execution and its error lands in Result.Error.
func evaluate(script string, ctx mscript.Context) mscript.Result {
	rt := &runtime{
		ctx:     ctx,
		console: logconsole.New(),
		updates: mscript.RequestUpdates{Headers: map[string]mscript.FieldUpdate{}},
		writes: mscript.VarWrites{
			Environment:         map[string]string{},
			Globals:             map[string]string{},
			CollectionVariables: map[string]string{},
		},
	}
	env := rt.buildEnv()

	var scriptErr string
	for i, line := range strings.Split(script, "\n") {
		stmt := strings.TrimSpace(line)
		if stmt == "" || strings.HasPrefix(stmt, "//") {
			continue
		}
		if _, err := expr.Eval(stmt, env); err != nil {
			scriptErr = fmt.Sprintf("line %d: %v", i+1, err)
			rt.console.Append(logconsole.LogLevelError, scriptErr)
			break
		}
	}

	result := mscript.Result{
		Tests:   rt.tests,
		Console: rt.console.Lines(),
		Error:   scriptErr,
		Writes:  rt.writes,
	}
	// A failed script contributes no request updates; the request proceeds
	// with the state it had before the script ran.
	if scriptErr == "" && !rt.updates.Empty() {
		updates := rt.updates
		result.Updates = &updates
	}
	return result
}

func (rt *runtime) buildEnv() map[string]any {
	return map[string]any{
		"pm": map[string]any{
			"environment":         rt.scopeAPI(rt.ctx.Environment, rt.writes.Environment),
			"globals":             rt.scopeAPI(rt.ctx.Globals, rt.writes.Globals),
			"collectionVariables": rt.scopeAPI(rt.ctx.CollectionVariables, rt.writes.CollectionVariables),
			"request":             rt.requestAPI(),
			"response":            rt.responseAPI(),
			"test":                rt.test,
		},
		"console": map[string]any{
			"log":   rt.logAt(logconsole.LogLevelInfo),
			"info":  rt.logAt(logconsole.LogLevelInfo),
			"debug": rt.logAt(logconsole.LogLevelDebug),
			"warn":  rt.logAt(logconsole.LogLevelWarn),
			"error": rt.logAt(logconsole.LogLevelError),
		},
	}
}

// scopeAPI exposes one variable scope. Writes overlay the snapshot so a set
// followed by a get inside the same script sees the new value.
func (rt *runtime) scopeAPI(snapshot, writes map[string]string) map[string]any {
	return map[string]any{
		"get": func(key string) string {
			if v, ok := writes[key]; ok {
				return v
			}
			return snapshot[key]
		},
		"has": func(key string) bool {
			if _, ok := writes[key]; ok {
				return true
			}
			_, ok := snapshot[key]
			return ok
		},
		"set": func(key, value string) bool {
			writes[key] = value
			return true
		},
	}
}

func (rt *runtime) requestAPI() map[string]any {
	req := rt.ctx.Request
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[k] = v
	}
	return map[string]any{
		"url":     req.URL,
		"method":  req.Method,
		"headers": headers,
		"body":    req.Body,
		"setUrl": func(url string) bool {
			rt.updates.URL = mscript.Set(url)
			return true
		},
		"setMethod": func(method string) bool {
			rt.updates.Method = mscript.Set(method)
			return true
		},
		"setBody": func(body string) bool {
			rt.updates.Body = mscript.Set(body)
			return true
		},
		"clearBody": func() bool {
			rt.updates.Body = mscript.Clear()
			return true
		},
		"setHeader": func(key, value string) bool {
			rt.updates.Headers[key] = mscript.Set(value)
			return true
		},
		"removeHeader": func(key string) bool {
			rt.updates.Headers[key] = mscript.Clear()
			return true
		},
		"setAuth": rt.setAuth,
	}
}

func (rt *runtime) responseAPI() map[string]any {
	resp := rt.ctx.Response
	if resp == nil {
		return nil
	}
	headers := make(map[string]string, len(resp.Headers))
	for k, v := range resp.Headers {
		headers[k] = v
	}
	return map[string]any{
		"code":     resp.Status,
		"headers":  headers,
		"body":     resp.Body,
		"duration": resp.Duration,
		"json": func() any {
			return resp.Body
		},
	}
}

func (rt *runtime) test(name string, passed bool) bool {
	result := mscript.TestResult{Name: name, Passed: passed}
	if !passed {
		result.Error = "assertion failed"
	}
	rt.tests = append(rt.tests, result)
	return passed
}

// setAuth replaces the request auth from a scheme tag and a parameter map,
// e.g. pm.request.setAuth("bearer", {"token": "abc"}).
func (rt *runtime) setAuth(kind string, params map[string]any) bool {
	authKind, ok := mauth.KindFromString(kind)
	if !ok {
		panic(fmt.Sprintf("unknown auth scheme %q", kind))
	}
	list := make([]mauth.Param, 0, len(params))
	for k, v := range params {
		list = append(list, mauth.Param{Key: k, Value: fmt.Sprint(v)})
	}
	auth, err := mauth.FromParams(authKind, list)
	if err != nil {
		panic(err.Error())
	}
	rt.updates.Auth = auth
	rt.updates.AuthSet = true
	return true
}

func (rt *runtime) logAt(level logconsole.LogLevel) func(args ...any) bool {
	return func(args ...any) bool {
		rt.console.Append(level, args...)
		return true
	}
}
