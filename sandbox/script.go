package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one execution step when no timeout is configured.
const DefaultTimeout = 5 * time.Second

const scriptName = "script.js"

// ScriptSandbox runs JavaScript inside the host process on an embedded goja
// runtime. Each call gets its own runtime and event loop, and the console is
// bound to an OutputSink owned by that call.
type ScriptSandbox struct {
	logger   *zap.Logger
	timeout  time.Duration
	messages Messages
}

// ScriptSandboxOption defines a functional option for ScriptSandbox
type ScriptSandboxOption func(*ScriptSandbox)

// WithScriptMessages sets the message catalog used for failures
func WithScriptMessages(messages Messages) ScriptSandboxOption {
	return func(s *ScriptSandbox) {
		s.messages = messages
	}
}

// NewScriptSandbox creates a ScriptSandbox. A non-positive timeout falls back
// to DefaultTimeout.
func NewScriptSandbox(logger *zap.Logger, timeout time.Duration, opts ...ScriptSandboxOption) *ScriptSandbox {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &ScriptSandbox{
		logger:   logger,
		timeout:  timeout,
		messages: DefaultMessages(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// scriptOutcome is what the event loop reports once the script settles.
type scriptOutcome struct {
	value   any
	message string
	failed  bool
}

// Run evaluates code and races its settlement against the timeout. When the
// timer wins the runtime is interrupted, which also stops busy loops.
func (s *ScriptSandbox) Run(ctx context.Context, code string) ExecutionResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sink := NewCapturedOutput()
	settled := make(chan scriptOutcome, 1)
	var running atomic.Pointer[goja.Runtime]

	loop := eventloop.NewEventLoop(eventloop.EnableConsole(false))
	loop.Start()
	defer loop.StopNoWait()

	loop.RunOnLoop(func(rt *goja.Runtime) {
		// Publish the runtime before checking ctx so a concurrent timeout
		// either sees it and interrupts, or is seen here.
		running.Store(rt)
		if ctx.Err() != nil {
			return
		}
		s.evaluate(rt, code, sink, settled)
	})

	select {
	case out := <-settled:
		if out.failed {
			return failed(ErrRuntime, out.message, sink.Lines()).withElapsed(start)
		}
		return succeeded(out.value, sink.Lines()).withElapsed(start)

	case <-ctx.Done():
		if rt := running.Load(); rt != nil {
			rt.Interrupt(ErrTimeout)
		}

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("script execution timed out", zap.Duration("timeout", s.timeout))
			return failed(ErrTimeout, s.messages.Timeout, sink.Lines()).withElapsed(start)
		}
		return failed(ErrRuntime, ctx.Err().Error(), sink.Lines()).withElapsed(start)
	}
}

// evaluate runs on the event loop goroutine; it sends exactly one outcome,
// either directly or from a promise reaction.
func (s *ScriptSandbox) evaluate(rt *goja.Runtime, code string, sink OutputSink, settled chan<- scriptOutcome) {
	if err := installGlobals(rt, sink); err != nil {
		settled <- scriptOutcome{failed: true, message: err.Error()}
		return
	}

	prg, err := compileScript(code)
	if err != nil {
		settled <- scriptOutcome{failed: true, message: err.Error()}
		return
	}

	val, err := rt.RunProgram(prg)
	if err != nil {
		settled <- scriptOutcome{failed: true, message: s.errorMessage(err)}
		return
	}

	promise, ok := exportPromise(val)
	if !ok {
		settled <- scriptOutcome{value: exportValue(val)}
		return
	}

	switch promise.State() {
	case goja.PromiseStateFulfilled:
		settled <- scriptOutcome{value: exportValue(promise.Result())}
	case goja.PromiseStateRejected:
		settled <- scriptOutcome{failed: true, message: s.reason(promise.Result())}
	default:
		s.awaitPromise(rt, val, settled)
	}
}

func (s *ScriptSandbox) awaitPromise(rt *goja.Runtime, val goja.Value, settled chan<- scriptOutcome) {
	then, ok := goja.AssertFunction(val.ToObject(rt).Get("then"))
	if !ok {
		settled <- scriptOutcome{failed: true, message: s.messages.ScriptFailed}
		return
	}

	onFulfilled := rt.ToValue(func(call goja.FunctionCall) goja.Value {
		settled <- scriptOutcome{value: exportValue(call.Argument(0))}
		return goja.Undefined()
	})
	onRejected := rt.ToValue(func(call goja.FunctionCall) goja.Value {
		settled <- scriptOutcome{failed: true, message: s.reason(call.Argument(0))}
		return goja.Undefined()
	})

	if _, err := then(val, onFulfilled, onRejected); err != nil {
		settled <- scriptOutcome{failed: true, message: s.errorMessage(err)}
	}
}

func (s *ScriptSandbox) errorMessage(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return s.messages.Timeout
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return s.reason(ex.Value())
	}

	return err.Error()
}

// reason extracts a message from a thrown or rejected value.
func (s *ScriptSandbox) reason(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return s.messages.ScriptFailed
	}

	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) && msg.String() != "" {
			return msg.String()
		}
	}

	return v.String()
}

// compileScript compiles code as a script so its completion value becomes
// the result. Sources that only parse as a function body (top-level await
// or return) run as an async arrow function instead.
func compileScript(code string) (*goja.Program, error) {
	prg, err := goja.Compile(scriptName, code, false)
	if err == nil {
		return prg, nil
	}

	if wrapped, wrapErr := goja.Compile(scriptName, "(async () => {\n"+code+"\n})()", false); wrapErr == nil {
		return wrapped, nil
	}

	return nil, err
}

func installGlobals(rt *goja.Runtime, sink OutputSink) error {
	console := rt.NewObject()
	methods := map[string]string{
		"log":   "",
		"error": PrefixError,
		"warn":  PrefixWarn,
		"info":  PrefixInfo,
	}
	for name, prefix := range methods {
		if err := console.Set(name, consoleMethod(prefix, sink)); err != nil {
			return err
		}
	}
	if err := rt.Set("console", console); err != nil {
		return err
	}

	process := rt.NewObject()
	if err := process.Set("env", rt.NewObject()); err != nil {
		return err
	}
	return rt.Set("process", process)
}

func consoleMethod(prefix string, sink OutputSink) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = formatArg(arg)
		}
		sink.AppendLine(prefix + strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// formatArg renders objects as JSON and everything else as a string.
func formatArg(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if _, isFunc := goja.AssertFunction(v); !isFunc {
			if b, err := obj.MarshalJSON(); err == nil {
				return string(b)
			}
		}
	}
	return v.String()
}

func exportPromise(v goja.Value) (*goja.Promise, bool) {
	if v == nil {
		return nil, false
	}
	p, ok := v.Export().(*goja.Promise)
	return p, ok
}

// exportValue converts a script value into something encoding/json can
// always render.
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}

	if _, isFunc := goja.AssertFunction(v); isFunc {
		return v.String()
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		if _, isSymbol := v.(*goja.Symbol); isSymbol {
			return v.String()
		}
		// NaN and the infinities have no JSON form; JSON.stringify maps them to null
		if f, isFloat := v.Export().(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil
		}
		return v.Export()
	}

	b, err := obj.MarshalJSON()
	if err != nil {
		return v.String()
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v.String()
	}
	return out
}
