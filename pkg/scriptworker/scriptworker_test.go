package scriptworker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiclient-backend/pkg/logconsole"
	"apiclient-backend/pkg/logger/mocklogger"
	"apiclient-backend/pkg/model/mauth"
	"apiclient-backend/pkg/model/mscript"
	"apiclient-backend/pkg/scriptworker"
)

func newWorker(t *testing.T) *scriptworker.Worker {
	t.Helper()
	w := scriptworker.New(mocklogger.NewMockLogger())
	t.Cleanup(w.Close)
	return w
}

func TestConsoleCapture(t *testing.T) {
	w := newWorker(t)
	script := `console.log("hello", 42)
console.warn("careful")`

	result := w.RunPreRequestScript(context.Background(), script, mscript.Context{})
	require.Empty(t, result.Error)
	require.Len(t, result.Console, 2)
	assert.Equal(t, "[INFO] hello 42", result.Console[0].String())
	assert.Equal(t, "[WARN] careful", result.Console[1].String())
}

func TestVariableWritesOverlayReads(t *testing.T) {
	w := newWorker(t)
	scriptCtx := mscript.Context{
		Environment: map[string]string{"host": "api.example.com"},
		Globals:     map[string]string{},
	}
	script := `pm.environment.set("token", "t1")
console.log(pm.environment.get("token"))
console.log(pm.environment.get("host"))
pm.globals.set("seen", "yes")
pm.collectionVariables.set("count", "3")`

	result := w.RunPreRequestScript(context.Background(), script, scriptCtx)
	require.Empty(t, result.Error)
	assert.Equal(t, "[INFO] t1", result.Console[0].String())
	assert.Equal(t, "[INFO] api.example.com", result.Console[1].String())
	assert.Equal(t, map[string]string{"token": "t1"}, result.Writes.Environment)
	assert.Equal(t, map[string]string{"seen": "yes"}, result.Writes.Globals)
	assert.Equal(t, map[string]string{"count": "3"}, result.Writes.CollectionVariables)

	// The caller's snapshot is untouched; writes are the only output channel.
	assert.Equal(t, map[string]string{"host": "api.example.com"}, scriptCtx.Environment)
}

func TestTestResults(t *testing.T) {
	w := newWorker(t)
	scriptCtx := mscript.Context{
		Response: &mscript.ResponseSnapshot{Status: 200, Duration: 12},
	}
	script := `pm.test("status is ok", pm.response.code == 200)
pm.test("fast enough", pm.response.duration < 5)`

	result := w.RunTestScript(context.Background(), script, scriptCtx)
	require.Empty(t, result.Error)
	require.Len(t, result.Tests, 2)
	assert.Equal(t, mscript.TestResult{Name: "status is ok", Passed: true}, result.Tests[0])
	assert.Equal(t, "fast enough", result.Tests[1].Name)
	assert.False(t, result.Tests[1].Passed)
	assert.Equal(t, "assertion failed", result.Tests[1].Error)
}

func TestRequestUpdates(t *testing.T) {
	w := newWorker(t)
	scriptCtx := mscript.Context{
		Request: mscript.RequestSnapshot{
			URL:     "https://api.example.com/users",
			Method:  "GET",
			Headers: map[string]string{"X-Old": "1"},
		},
	}
	script := `pm.request.setUrl(pm.request.url + "/42")
pm.request.setHeader("X-Trace", "abc")
pm.request.removeHeader("X-Old")
pm.request.setAuth("bearer", {"token": "tok"})`

	result := w.RunPreRequestScript(context.Background(), script, scriptCtx)
	require.Empty(t, result.Error)
	require.NotNil(t, result.Updates)
	assert.Equal(t, mscript.Set("https://api.example.com/users/42"), result.Updates.URL)
	assert.Equal(t, mscript.Set("abc"), result.Updates.Headers["X-Trace"])
	assert.Equal(t, mscript.Clear(), result.Updates.Headers["X-Old"])
	require.True(t, result.Updates.AuthSet)
	require.NotNil(t, result.Updates.Auth)
	assert.Equal(t, mauth.AuthKindBearer, result.Updates.Auth.Kind)
	assert.Equal(t, "tok", result.Updates.Auth.Bearer.Token)
}

func TestNoUpdatesMeansNilOverlay(t *testing.T) {
	w := newWorker(t)

	result := w.RunPreRequestScript(context.Background(), `console.log("nothing to change")`, mscript.Context{})
	require.Empty(t, result.Error)
	assert.Nil(t, result.Updates)
}

func TestScriptErrorIsData(t *testing.T) {
	w := newWorker(t)
	script := `console.log("before")
pm.environment.get(
console.log("after")`

	result := w.RunPreRequestScript(context.Background(), script, mscript.Context{})
	assert.Contains(t, result.Error, "line 2")
	// Effects before the failing line survive; the error is appended to the
	// console, and nothing after the failure runs.
	require.NotEmpty(t, result.Console)
	assert.Equal(t, "[INFO] before", result.Console[0].String())
	assert.Equal(t, logconsole.LogLevelError, result.Console[len(result.Console)-1].Level)
}

func TestFailedScriptContributesNoUpdates(t *testing.T) {
	w := newWorker(t)
	script := `pm.request.setHeader("X-Leak", "boom")
pm.environment.get(`

	result := w.RunPreRequestScript(context.Background(), script, mscript.Context{})
	assert.Contains(t, result.Error, "line 2")
	assert.Nil(t, result.Updates)
}

func TestUnknownAuthSchemeIsScriptError(t *testing.T) {
	w := newWorker(t)

	result := w.RunPreRequestScript(context.Background(),
		`pm.request.setAuth("carrier-pigeon", {})`, mscript.Context{})
	assert.Contains(t, result.Error, "carrier-pigeon")
	assert.Nil(t, result.Updates)
}

func TestEmptyScriptIsNoOp(t *testing.T) {
	w := newWorker(t)

	result := w.RunTestScript(context.Background(), "  \n\t\n", mscript.Context{})
	assert.Empty(t, result.Error)
	assert.Empty(t, result.Console)
	assert.Empty(t, result.Tests)
}

func TestCommentsAndBlankLinesSkipped(t *testing.T) {
	w := newWorker(t)
	script := `// setup
console.log("ran")

// done`

	result := w.RunPreRequestScript(context.Background(), script, mscript.Context{})
	require.Empty(t, result.Error)
	require.Len(t, result.Console, 1)
}

func TestClosedWorkerIsUnavailable(t *testing.T) {
	w := scriptworker.New(mocklogger.NewMockLogger())
	w.Close()

	result := w.RunTestScript(context.Background(), `console.log("x")`, mscript.Context{})
	assert.Equal(t, "script worker unavailable", result.Error)
}
