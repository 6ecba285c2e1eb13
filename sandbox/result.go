package sandbox

import (
	"context"
	"time"
)

// ExecutionRequest represents the parameters for code execution
type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Input    string `json:"input,omitempty"`
}

// ExecutionResult is the normalized outcome every execution path returns.
//
// Result holds the primary outcome: the script's value, an error message or
// the "execution completed" marker. Output holds captured lines in emission
// order and is never nil. ExecutionTime is in milliseconds.
type ExecutionResult struct {
	Success       bool     `json:"success"`
	Result        any      `json:"result"`
	Output        []string `json:"output"`
	ExecutionTime float64  `json:"executionTime"`

	// Err classifies failures; nil on success.
	Err error `json:"-"`
}

// Executor runs one request to completion. Implementations never return a
// malformed result; failures are reported through Success and Result.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) ExecutionResult
	Languages() []string
}

func succeeded(result any, output []string) ExecutionResult {
	return ExecutionResult{
		Success: true,
		Result:  result,
		Output:  nonNil(output),
	}
}

func failed(kind error, message string, output []string) ExecutionResult {
	return ExecutionResult{
		Success: false,
		Result:  message,
		Output:  nonNil(output),
		Err:     newExecError(kind, message),
	}
}

func (r ExecutionResult) withElapsed(start time.Time) ExecutionResult {
	r.ExecutionTime = elapsedMs(start)
	return r
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func nonNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
