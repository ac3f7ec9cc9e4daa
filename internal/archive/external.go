package archive

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const ExternalStrategyName = "external"

// ExternalStrategy delegates every operation to a 7-Zip compatible program.
type ExternalStrategy struct {
	program string
	fs      afero.Fs
	logger  *zap.Logger
}

func NewExternalStrategy(program string, fs afero.Fs, logger *zap.Logger) *ExternalStrategy {
	if program == "" {
		program = DefaultProgram
	}
	return &ExternalStrategy{program: program, fs: fs, logger: logger}
}

func (s *ExternalStrategy) Name() string {
	return ExternalStrategyName
}

func (s *ExternalStrategy) List(ctx context.Context, path string) (string, error) {
	if err := requireExists(s.fs, "list", path); err != nil {
		return "", err
	}
	return s.list(ctx, path)
}

func (s *ExternalStrategy) list(ctx context.Context, path string) (string, error) {
	return s.run(ctx, "list", listArgs(path))
}

func (s *ExternalStrategy) Extract(ctx context.Context, req Request) (string, error) {
	if err := requireExists(s.fs, "extract", req.Path); err != nil {
		return "", err
	}
	return s.extract(ctx, req)
}

func (s *ExternalStrategy) extract(ctx context.Context, req Request) (string, error) {
	return s.run(ctx, "extract", extractArgs(req))
}

func (s *ExternalStrategy) Create(ctx context.Context, req Request) (string, error) {
	if err := requireSources("create", req.Sources); err != nil {
		return "", err
	}
	return s.run(ctx, "create", createArgs(req))
}

func listArgs(path string) []string {
	return []string{"l", path}
}

func extractArgs(req Request) []string {
	args := []string{"x", req.Path, "-o" + req.Destination, "-y"}
	if req.Password != "" {
		args = append(args, "-p"+req.Password)
	}
	return args
}

func createArgs(req Request) []string {
	args := []string{"a", req.Destination}
	if req.Format != "" {
		args = append(args, "-t"+req.Format)
	}
	if req.Password != "" {
		args = append(args, "-p"+req.Password, "-mhe=on")
	}
	return append(args, req.Sources...)
}

// run waits for the tool to exit. The process is not bound to ctx and is
// never killed on cancellation.
func (s *ExternalStrategy) run(_ context.Context, op string, args []string) (string, error) {
	cmd := exec.Command(s.program, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("invoking archiver",
		zap.String("op", op),
		zap.String("program", s.program),
		zap.Strings("args", redact(args)),
	)
	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	s.logger.Debug("archiver finished",
		zap.String("op", op),
		zap.Int("exit_code", exitCode),
		zap.Duration("duration", duration),
	)

	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", &failure.Error{Kind: failure.ToolInvocation, Op: op, Msg: stderrStr, Err: err}
		}
		return "", &failure.Error{Kind: failure.ToolInvocation, Op: op, Msg: "command failed", Err: err}
	}

	return stdout.String(), nil
}

// redact hides password arguments from logs.
func redact(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "-p") && len(a) > 2 {
			out[i] = "-p***"
			continue
		}
		out[i] = a
	}
	return out
}
