// Package scriptworker runs user scripts in an isolated worker goroutine.
// Callers talk to it over an id-tagged message protocol; script failures
// come back as data inside the result, never as Go errors.
package scriptworker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"apiclient-backend/pkg/idwrap"
	"apiclient-backend/pkg/logconsole"
	"apiclient-backend/pkg/model/mscript"
)

const (
	DefaultTimeout = 10 * time.Second

	// After this many crashes the worker stops respawning and every
	// further call gets a synthesized failure result.
	maxRespawns = 3

	requestBuffer = 16
)

type message struct {
	id     idwrap.IDWrap
	script string
	ctx    mscript.Context
}

type evaluator func(script string, ctx mscript.Context) mscript.Result

// Worker owns one script-execution goroutine. Requests carry a fresh id;
// replies are routed back through the pending map, so a reply that arrives
// after its caller timed out is dropped on the floor.
type Worker struct {
	logger   *slog.Logger
	timeout  time.Duration
	eval     evaluator
	requests chan message
	done     chan struct{}

	mu       sync.Mutex
	pending  map[idwrap.IDWrap]chan mscript.Result
	respawns int
	degraded bool
	closed   bool
}

type Option func(*Worker)

func WithTimeout(d time.Duration) Option {
	return func(w *Worker) { w.timeout = d }
}

func withEvaluator(eval evaluator) Option {
	return func(w *Worker) { w.eval = eval }
}

func New(logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		logger:   logger,
		timeout:  DefaultTimeout,
		eval:     evaluate,
		requests: make(chan message, requestBuffer),
		done:     make(chan struct{}),
		pending:  map[idwrap.IDWrap]chan mscript.Result{},
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.loop()
	return w
}

// RunPreRequestScript executes a script before the request is sent. The
// context must not carry a response snapshot.
func (w *Worker) RunPreRequestScript(ctx context.Context, script string, scriptCtx mscript.Context) mscript.Result {
	scriptCtx.Response = nil
	return w.run(ctx, script, scriptCtx)
}

// RunTestScript executes a script after the response arrived.
func (w *Worker) RunTestScript(ctx context.Context, script string, scriptCtx mscript.Context) mscript.Result {
	return w.run(ctx, script, scriptCtx)
}

func (w *Worker) run(ctx context.Context, script string, scriptCtx mscript.Context) mscript.Result {
	if strings.TrimSpace(script) == "" {
		return mscript.Result{}
	}

	w.mu.Lock()
	if w.degraded || w.closed {
		w.mu.Unlock()
		return unavailableResult()
	}
	id := idwrap.NewNow()
	reply := make(chan mscript.Result, 1)
	w.pending[id] = reply
	w.mu.Unlock()

	select {
	case w.requests <- message{id: id, script: script, ctx: scriptCtx.Clone()}:
	case <-w.done:
		w.drop(id)
		return unavailableResult()
	case <-ctx.Done():
		w.drop(id)
		return failureResult("script execution canceled")
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()
	select {
	case result := <-reply:
		return result
	case <-timer.C:
		w.drop(id)
		return failureResult("script execution timed out")
	case <-ctx.Done():
		w.drop(id)
		return failureResult("script execution canceled")
	}
}

// Close stops accepting new scripts. The script currently evaluating finishes
// normally; the loop exits before taking another one.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.done)
}

func (w *Worker) loop() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("script worker crashed", "panic", r)
			w.respawn()
			w.rejectAll(fmt.Sprintf("script worker crashed: %v", r))
		}
	}()
	for {
		select {
		case msg := <-w.requests:
			w.dispatch(msg.id, w.eval(msg.script, msg.ctx))
		case <-w.done:
			return
		}
	}
}

func (w *Worker) dispatch(id idwrap.IDWrap, result mscript.Result) {
	w.mu.Lock()
	reply, ok := w.pending[id]
	delete(w.pending, id)
	w.mu.Unlock()
	if ok {
		reply <- result
	}
}

func (w *Worker) drop(id idwrap.IDWrap) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

func (w *Worker) rejectAll(reason string) {
	w.mu.Lock()
	pending := w.pending
	w.pending = map[idwrap.IDWrap]chan mscript.Result{}
	w.mu.Unlock()
	for _, reply := range pending {
		reply <- failureResult(reason)
	}
}

func (w *Worker) respawn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.respawns++
	if w.respawns > maxRespawns {
		w.degraded = true
		w.logger.Error("script worker gave up respawning", "crashes", w.respawns)
		return
	}
	w.logger.Warn("respawning script worker", "crashes", w.respawns)
	go w.loop()
}

func failureResult(reason string) mscript.Result {
	return mscript.Result{
		Error:   reason,
		Console: []logconsole.Line{{Level: logconsole.LogLevelError, Message: reason}},
	}
}

func unavailableResult() mscript.Result {
	return failureResult("script worker unavailable")
}
