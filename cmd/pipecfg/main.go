package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/sourceplane/pipecfg/internal/loader"
	"github.com/sourceplane/pipecfg/internal/validate"
)

// loadSettings loads and validates the settings tree at settingsPath,
// reporting progress to w
func loadSettings(ctx context.Context, w io.Writer) (*validate.Result, error) {
	logger := ctxlog.FromContext(ctx)

	fmt.Fprintln(w, "□ Loading settings...")
	settings, err := loader.Load(ctx, settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	fmt.Fprintln(w, "□ Validating settings...")
	result := validate.Validate(settings, validate.Options{Strict: strictMode})
	logger.Debug("Validated settings",
		"path", settingsPath,
		"errors", len(result.Errors()),
		"warnings", len(result.Warnings()))

	return result, nil
}

// loadValidSettings is loadSettings for commands that need a clean tree
func loadValidSettings(ctx context.Context, w io.Writer) (*validate.Result, error) {
	result, err := loadSettings(ctx, w)
	if err != nil {
		return nil, err
	}
	if result.HasErrors() {
		printIssues(w, result.Issues)
		return nil, fmt.Errorf("settings have %d validation errors", len(result.Errors()))
	}
	return result, nil
}

func printIssues(w io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		marker := "!"
		if issue.Severity == validate.SeverityError {
			marker = "✗"
		}
		fmt.Fprintf(w, "  %s %s: %s\n", marker, issue.Path, issue.Message)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
