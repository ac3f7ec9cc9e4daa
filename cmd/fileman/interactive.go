package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type interactiveCtxKeyType struct{}

var interactiveCtxKey = interactiveCtxKeyType{}

func isInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func withInteractive(ctx context.Context, interactive bool) context.Context {
	return context.WithValue(ctx, interactiveCtxKey, interactive)
}

func isInteractive(ctx context.Context) bool {
	interactive, ok := ctx.Value(interactiveCtxKey).(bool)
	if !ok {
		return false
	}
	return interactive
}

// confirm asks a yes/no question on w and reads the answer from r. Destructive
// commands refuse to run without --yes outside a terminal.
func confirm(ctx context.Context, r io.Reader, w io.Writer, assumeYes bool, question string) error {
	if assumeYes {
		return nil
	}
	if !isInteractive(ctx) {
		return fmt.Errorf("refusing to %s without --yes in a non-interactive session", question)
	}

	fmt.Fprintf(w, "Really %s? [y/N] ", question)
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return fmt.Errorf("aborted: %s", question)
	}
}
