package archive

import (
	"context"
	"io"
	"os/exec"
)

const (
	DefaultProgram = "7z"
)

// Prober answers whether the external archiver can be used right now.
type Prober interface {
	Available(ctx context.Context) bool
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) Available(ctx context.Context) bool {
	return f(ctx)
}

// Never is a Prober that always reports the tool as absent.
var Never Prober = ProbeFunc(func(context.Context) bool { return false })

// ToolProbe starts Program with Args and reports whether the process could be
// spawned. The exit code is irrelevant. Nothing is cached between calls.
type ToolProbe struct {
	Program string
	Args    []string
}

// NewToolProbe returns a probe for program invoked with "--help".
func NewToolProbe(program string) *ToolProbe {
	if program == "" {
		program = DefaultProgram
	}
	return &ToolProbe{Program: program, Args: []string{"--help"}}
}

func (p *ToolProbe) Available(_ context.Context) bool {
	cmd := exec.Command(p.Program, p.Args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return false
	}
	_ = cmd.Wait()
	return true
}
