package subapp

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
)

type logger struct {
	t *testing.T
}

func (l *logger) getCallerInfo() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	relPath, err := filepath.Rel(wd, file)
	if err != nil {
		relPath = file
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}

func (l *logger) Info(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] INFO %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Error(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] ERROR %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Warn(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] WARN %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Debug(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] DEBUG %s", l.getCallerInfo(), msg), args)
}

// MockLogger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Warn(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Error(msg string, args ...any) {
	m.Called(msg, args)
}

// recordingLogger keeps every message by level.
type recordingLogger struct {
	mu      sync.Mutex
	entries map[string][]string
}

func (r *recordingLogger) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string][]string)
	}
	r.entries[level] = append(r.entries[level], msg)
}

func (r *recordingLogger) Info(msg string, _ ...any)  { r.add("info", msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.add("error", msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.add("warn", msg) }
func (r *recordingLogger) Debug(msg string, _ ...any) { r.add("debug", msg) }

func (r *recordingLogger) messages(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries[level]...)
}

// MockHost
type MockHost struct {
	mock.Mock
}

func (m *MockHost) InjectStyle(source string) (Artifact, error) {
	args := m.Called(source)
	return args.Get(0), args.Error(1)
}

func (m *MockHost) InjectExecutable(source string, signal LoadSignal) (Artifact, error) {
	args := m.Called(source, signal)
	return args.Get(0), args.Error(1)
}

func (m *MockHost) Remove(artifact Artifact) error {
	return m.Called(artifact).Error(0)
}
