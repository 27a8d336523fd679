package hostfunc

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Names under which a Console registers itself.
const (
	FuncConsoleLog = "console_log"
	FuncRunError   = "run_error"
)

// Console collects what a single run logs. One Console is created per run
// and handed to the engine, so concurrent runs never share a sink.
type Console struct {
	mu     sync.Mutex
	lines  []string
	failed bool
	reason string
}

func NewConsole() *Console {
	return &Console{}
}

// Log appends one logged line.
func (c *Console) Log(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// Fail records that the script threw. Only the first failure is kept.
func (c *Console) Fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return
	}
	c.failed = true
	c.reason = message
}

// Failure returns the recorded failure message, if any.
func (c *Console) Failure() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason, c.failed
}

func (c *Console) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// String joins the logged lines, each terminated by a newline.
func (c *Console) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, line := range c.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Register binds the console to r under FuncConsoleLog and FuncRunError.
func (c *Console) Register(r *Registry) {
	r.Register(FuncConsoleLog, c.logFunc)
	r.Register(FuncRunError, c.errorFunc)
}

func (c *Console) logFunc(ctx context.Context, args map[string]any) (any, error) {
	line, err := stringArg(args, "line")
	if err != nil {
		return nil, err
	}
	c.Log(line)
	return nil, nil
}

func (c *Console) errorFunc(ctx context.Context, args map[string]any) (any, error) {
	msg, err := stringArg(args, "message")
	if err != nil {
		return nil, err
	}
	c.Fail(msg)
	return nil, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}
