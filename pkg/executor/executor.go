// Package executor drives one request through resolution, auth, scripts,
// transport, and response normalization. Execute never returns an error;
// every failure mode lands inside the returned execution record.
package executor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"apiclient-backend/pkg/authproc"
	"apiclient-backend/pkg/credvault"
	"apiclient-backend/pkg/errmap"
	"apiclient-backend/pkg/http/request"
	"apiclient-backend/pkg/http/response"
	"apiclient-backend/pkg/httpclient"
	"apiclient-backend/pkg/model/mauth"
	"apiclient-backend/pkg/model/menv"
	"apiclient-backend/pkg/model/mexecution"
	"apiclient-backend/pkg/model/mrequest"
	"apiclient-backend/pkg/model/mscript"
	"apiclient-backend/pkg/model/mvar"
	"apiclient-backend/pkg/scriptworker"
	"apiclient-backend/pkg/varsystem"
)

// StoreSnapshot is the environment-store state read once at call time.
// Concurrent Execute calls each take their own snapshot, so every call is
// internally consistent even while the store mutates.
type StoreSnapshot struct {
	Environments        map[string]menv.Environment
	ActiveEnvironmentID string
	GlobalVariables     []mvar.Var
	Proxy               httpclient.ProxyConfig
}

// ResultSink receives script results as they land. The returned execution
// record never carries them; the result surface does.
type ResultSink interface {
	SetPreRequestScriptResult(mscript.Result)
	SetTestScriptResult(mscript.Result)
}

// Input is one declarative request plus its collection-level context.
type Input struct {
	Request             mrequest.Request
	CollectionAuth      *mauth.Auth
	CollectionVariables []mvar.Var
	PreRequestScript    string
	TestScript          string
}

type Executor struct {
	client httpclient.HttpClient
	worker *scriptworker.Worker
	auth   *authproc.Processor
	creds  *credvault.Store
	logger *slog.Logger
}

func New(client httpclient.HttpClient, worker *scriptworker.Worker, auth *authproc.Processor, creds *credvault.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client: client,
		worker: worker,
		auth:   auth,
		creds:  creds,
		logger: logger,
	}
}

// Execute runs the pipeline start to finish. ctx aborts the network
// transfer; dispatched script calls keep their own independent timeout.
func (e *Executor) Execute(ctx context.Context, snapshot StoreSnapshot, input Input, sink ResultSink) mexecution.RequestExecution {
	varCtx := buildVarContext(snapshot, input.CollectionVariables).WithLogger(e.logger)
	resolved := varCtx.ResolveRequest(input.Request)

	effectiveAuth := resolved.Auth
	if effectiveAuth == nil && input.CollectionAuth != nil {
		effectiveAuth = varCtx.ResolveAuth(input.CollectionAuth)
	}
	if e.creds != nil && effectiveAuth != nil && effectiveAuth.Kind != mauth.AuthKindNone {
		e.creds.StoreCredentials(requestIdentity(resolved), effectiveAuth)
	}

	authResult := e.auth.Process(effectiveAuth, varCtx)

	if input.PreRequestScript != "" {
		scriptCtx := scriptContext(resolved, varCtx, nil)
		result := e.worker.RunPreRequestScript(ctx, input.PreRequestScript, scriptCtx)
		if sink != nil {
			sink.SetPreRequestScriptResult(result)
		}
		if result.Error != "" {
			e.logger.Warn("pre-request script failed, continuing", "error", result.Error)
		}
		if result.Updates != nil {
			applyUpdates(&resolved, result.Updates)
			if result.Updates.AuthSet {
				effectiveAuth = varCtx.ResolveAuth(result.Updates.Auth)
				authResult = e.auth.Process(effectiveAuth, varCtx)
			}
		}
	}

	startedAt := time.Now()

	prepared, err := request.Prepare(resolved, authResult)
	if err != nil {
		e.logger.Error("failed to build transport request", "error", err)
		return response.Failure(err.Error(), false, startedAt, time.Since(startedAt))
	}

	client := httpclient.NewWithProxy(e.client, snapshot.Proxy)
	resp, err := httpclient.SendRequestAndConvert(ctx, client, prepared)
	duration := time.Since(startedAt)
	if err != nil {
		mapped := errmap.MapRequestError(resolved.Method, resolved.URL, err)
		if errmap.IsCorsError(mapped) {
			return response.Failure(errmap.Friendly(mapped), true, startedAt, duration)
		}
		return response.Failure(mapped.Error(), false, startedAt, duration)
	}

	exec := response.Normalize(resp, startedAt, duration)

	if input.TestScript != "" {
		scriptCtx := scriptContext(resolved, varCtx, &mscript.ResponseSnapshot{
			Status:   exec.Status,
			Headers:  exec.Headers,
			Body:     exec.Body,
			Duration: exec.Duration,
		})
		result := e.worker.RunTestScript(ctx, input.TestScript, scriptCtx)
		if sink != nil {
			sink.SetTestScriptResult(result)
		}
	}

	return exec
}

func buildVarContext(snapshot StoreSnapshot, collectionVars []mvar.Var) varsystem.VarContext {
	enabled := func(v mvar.Var) bool { return v.Enabled }
	collection := varsystem.VarsToMap(varsystem.FilterVars(collectionVars, enabled))
	globals := varsystem.VarsToMap(varsystem.FilterVars(snapshot.GlobalVariables, enabled))

	var environment, secrets map[string]string
	if env, ok := snapshot.Environments[snapshot.ActiveEnvironmentID]; ok {
		environment = env.Values
		secrets = env.Secrets
	}
	return varsystem.NewVarContext(collection, environment, secrets, globals)
}

// requestIdentity keys the credential cache by what the user is calling.
func requestIdentity(req mrequest.Request) string {
	return strings.ToUpper(req.Method) + " " + req.URL
}

func scriptContext(req mrequest.Request, varCtx varsystem.VarContext, resp *mscript.ResponseSnapshot) mscript.Context {
	headers := make(map[string]string, len(req.Headers))
	for _, h := range req.Headers {
		if h.Enabled {
			headers[h.Key] = h.Value
		}
	}
	return mscript.Context{
		Request: mscript.RequestSnapshot{
			URL:     req.URL,
			Method:  req.Method,
			Headers: headers,
			Body:    req.Body.Raw,
			Auth:    req.Auth,
		},
		Response:            resp,
		Environment:         varCtx.Environment,
		Globals:             varCtx.Globals,
		CollectionVariables: varCtx.Collection,
	}
}

// applyUpdates folds a pre-request script's overlay into the resolved
// request. Cleared headers are removed outright; set headers upsert.
func applyUpdates(req *mrequest.Request, updates *mscript.RequestUpdates) {
	switch updates.URL.Op {
	case mscript.UpdateOpSet:
		req.URL = updates.URL.Value
	case mscript.UpdateOpClear:
		req.URL = ""
	}
	switch updates.Method.Op {
	case mscript.UpdateOpSet:
		req.Method = updates.Method.Value
	case mscript.UpdateOpClear:
		req.Method = ""
	}
	switch updates.Body.Op {
	case mscript.UpdateOpSet:
		req.Body = mrequest.Body{Kind: mrequest.BodyKindRaw, Raw: updates.Body.Value}
	case mscript.UpdateOpClear:
		req.Body = mrequest.Body{Kind: mrequest.BodyKindNone}
	}

	for name, update := range updates.Headers {
		switch update.Op {
		case mscript.UpdateOpSet:
			upsertHeader(req, name, update.Value)
		case mscript.UpdateOpClear:
			removeHeader(req, name)
		}
	}

	if updates.AuthSet {
		req.Auth = updates.Auth
	}
}

func upsertHeader(req *mrequest.Request, key, value string) {
	for i := range req.Headers {
		if strings.EqualFold(req.Headers[i].Key, key) {
			req.Headers[i].Value = value
			req.Headers[i].Enabled = true
			return
		}
	}
	req.Headers = append(req.Headers, mrequest.Header{Key: key, Value: value, Enabled: true})
}

func removeHeader(req *mrequest.Request, key string) {
	kept := req.Headers[:0]
	for _, h := range req.Headers {
		if !strings.EqualFold(h.Key, key) {
			kept = append(kept, h)
		}
	}
	req.Headers = kept
}
