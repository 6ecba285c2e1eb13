package sandbox

import (
	"context"
	"os"
	"sync"
)

// mockResult is what MockCommandRunner returns for one program
type mockResult struct {
	out ToolchainOutput
	err error
}

// MockCommandRunner implements CommandRunner for testing. Results are keyed
// by program name since staged paths are unpredictable.
type MockCommandRunner struct {
	mu             sync.Mutex
	commandResults map[string]mockResult
	defaultResult  mockResult
	invocations    []Invocation
	// onRun, if set, runs before a result is returned
	onRun func(inv Invocation)
}

func (m *MockCommandRunner) RunCommand(_ context.Context, inv Invocation) (ToolchainOutput, error) {
	m.mu.Lock()
	m.invocations = append(m.invocations, inv)
	m.mu.Unlock()

	if m.onRun != nil {
		m.onRun(inv)
	}

	if result, exists := m.commandResults[inv.Args[0]]; exists {
		return result.out, result.err
	}
	return m.defaultResult.out, m.defaultResult.err
}

func (m *MockCommandRunner) calls() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Invocation(nil), m.invocations...)
}

func cleanExit(stdout string) mockResult {
	return mockResult{out: ToolchainOutput{Stdout: stdout, ExitedCleanly: true}}
}

// MockFileSystem implements FileSystem for testing
type MockFileSystem struct {
	mkdirAllErrors  map[string]error
	writeFileErrors map[string]error
	removeErrors    map[string]error
	writeFileData   map[string][]byte
	removed         []string
}

func (m *MockFileSystem) MkdirAll(path string, _ os.FileMode) error {
	if err, exists := m.mkdirAllErrors[path]; exists {
		return err
	}
	return nil
}

func (m *MockFileSystem) WriteFile(filename string, data []byte, _ os.FileMode) error {
	if err, exists := m.writeFileErrors[filename]; exists {
		return err
	}
	if m.writeFileData == nil {
		m.writeFileData = make(map[string][]byte)
	}
	m.writeFileData[filename] = data
	return nil
}

func (m *MockFileSystem) Remove(path string) error {
	if err, exists := m.removeErrors[path]; exists {
		return err
	}
	if _, exists := m.writeFileData[path]; !exists {
		return os.ErrNotExist
	}
	delete(m.writeFileData, path)
	m.removed = append(m.removed, path)
	return nil
}

func (m *MockFileSystem) RemoveAll(path string) error {
	m.removed = append(m.removed, path)
	return nil
}

func (m *MockFileSystem) FileExists(path string) (bool, error) {
	_, exists := m.writeFileData[path]
	return exists, nil
}

// scratchEntries lists what is left in a scratch directory
func scratchEntries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
