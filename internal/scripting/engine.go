package scripting

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// Engine executes GreasySpoon server scripts.
type Engine struct {
	timeout time.Duration
}

// NewEngine creates a new scripting engine with the given timeout.
func NewEngine(timeout time.Duration) *Engine {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Engine{timeout: timeout}
}

// Result holds script execution results.
type Result struct {
	Logs     []string
	Duration time.Duration
	Err      error
}

// Run executes src with msg bound to the httpMessage global. The script is
// interrupted when ctx is done or the engine timeout passes.
func (e *Engine) Run(ctx context.Context, src string, msg HTTPMessage) *Result {
	api := newScriptAPI(msg)
	start := time.Now()
	err := e.run(ctx, src, api)
	return &Result{
		Logs:     api.logs,
		Duration: time.Since(start),
		Err:      err,
	}
}

func (e *Engine) run(ctx context.Context, src string, api *ScriptAPI) error {
	vm := goja.New()
	api.registerOnRuntime(vm)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("script timeout exceeded")
		case <-done:
		}
	}()

	_, err := vm.RunString(src)
	close(done)

	if err != nil {
		return fmt.Errorf("script error: %w", err)
	}
	return nil
}
