package sandbox

import "sync"

// OutputSink receives the lines a running script emits.
type OutputSink interface {
	AppendLine(line string)
}

// Line prefixes for severity-tagged console calls.
const (
	PrefixError = "[ERROR]: "
	PrefixWarn  = "[WARN]: "
	PrefixInfo  = "[INFO]: "
)

// CapturedOutput is an append-only OutputSink scoped to one execution. The
// script appends from the event loop goroutine while the caller may read a
// snapshot after a timeout, so access is locked.
type CapturedOutput struct {
	mu    sync.Mutex
	lines []string
}

func NewCapturedOutput() *CapturedOutput {
	return &CapturedOutput{lines: []string{}}
}

func (c *CapturedOutput) AppendLine(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// Lines returns a copy of the lines captured so far.
func (c *CapturedOutput) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}
