package testing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotScripted is returned for a command without script, as if it were not installed.
var ErrNotScripted = errors.New("executable file not found in $PATH")

// ToolCall records one invocation seen by FakeTools.
type ToolCall struct {
	Dir     string
	Command string
	Args    []string
}

// ToolScript simulates a program. n counts the previous calls of the same command.
// The returned code is the exit code of the simulated program.
type ToolScript func(w *Workdir, args []string, n int) int

// FakeTools implements toolexec.Runner by running scripts instead of programs.
// Files written through Workdir get strictly increasing modification times, all in
// the future, so freshness checks succeed without waiting.
type FakeTools struct {
	mu      sync.Mutex
	scripts map[string]ToolScript
	calls   []ToolCall
	clock   time.Time
}

// NewFakeTools creates a runner without scripts.
func NewFakeTools() *FakeTools {
	return &FakeTools{
		scripts: make(map[string]ToolScript),
		clock:   time.Now().Add(time.Minute).Truncate(time.Second),
	}
}

// Script registers the simulation of command.
func (f *FakeTools) Script(command string, s ToolScript) *FakeTools {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[command] = s
	return f
}

// Exec implements toolexec.Runner.
func (f *FakeTools) Exec(_ context.Context, dir, command string, args []string) (string, int, error) {
	f.mu.Lock()
	script, ok := f.scripts[command]
	n := 0
	for _, c := range f.calls {
		if c.Command == command {
			n++
		}
	}
	f.calls = append(f.calls, ToolCall{Dir: dir, Command: command, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if !ok {
		return "", -1, &os.PathError{Op: "exec", Path: command, Err: ErrNotScripted}
	}
	return "", script(&Workdir{dir: dir, fake: f}, args, n), nil
}

// Calls returns all invocations in order.
func (f *FakeTools) Calls() []ToolCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ToolCall(nil), f.calls...)
}

// CallsOf returns the invocations of command.
func (f *FakeTools) CallsOf(command string) []ToolCall {
	var out []ToolCall
	for _, c := range f.Calls() {
		if c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how often command ran.
func (f *FakeTools) Count(command string) int { return len(f.CallsOf(command)) }

func (f *FakeTools) tick() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(2 * time.Second)
	return f.clock
}

// NoSleep replaces the stall of the executor in tests.
func NoSleep(time.Duration) {}

// Workdir gives a script access to the working directory of its invocation.
type Workdir struct {
	dir  string
	fake *FakeTools
}

// Dir returns the working directory.
func (w *Workdir) Dir() string { return w.dir }

// Write creates or replaces name, relative to the working directory, with content.
func (w *Workdir) Write(name, content string) {
	path := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), testDirPermissions); err != nil {
		panic(err)
	}
	if err := os.WriteFile(path, []byte(content), testFilePermissions); err != nil {
		panic(err)
	}
	t := w.fake.tick()
	if err := os.Chtimes(path, t, t); err != nil {
		panic(err)
	}
}

// Read returns the content of name or "" if it cannot be read.
func (w *Workdir) Read(name string) string {
	data, err := os.ReadFile(filepath.Join(w.dir, name))
	if err != nil {
		return ""
	}
	return string(data)
}

// Exists reports whether name exists in the working directory.
func (w *Workdir) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(w.dir, name))
	return err == nil
}
