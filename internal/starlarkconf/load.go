// Package starlarkconf evaluates settings written in Starlark. A script
// builds its tree with the predeclared builtins and hands the root project
// to settings(), exactly once:
//
//	repo = git_vcs_root(name = "repo", url = "https://github.com/org/repo.git")
//	settings(version = "2022.10", project = project(
//	    name = "Root",
//	    vcs_roots = [repo],
//	    build_types = [build_type(name = "Build", vcs = [repo], steps = [script("make")])],
//	))
package starlarkconf

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/sourceplane/pipecfg/internal/model"
	"go.starlark.net/starlark"
)

// LoadFile evaluates a Starlark settings file
func LoadFile(ctx context.Context, filePath string) (*model.Settings, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", filePath, err)
	}
	return Exec(ctx, filePath, src)
}

// Exec evaluates Starlark source; filename is used in backtraces
func Exec(ctx context.Context, filename string, src []byte) (*model.Settings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Evaluating Starlark settings", "path", filename)

	c := &collector{}
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(msg, "source", filename)
		},
	}
	thread.SetLocal(collectorKey, c)

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-finished:
		}
	}()

	if _, err := starlark.ExecFile(thread, filename, src, predeclared()); err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return nil, fmt.Errorf("failed to evaluate %s: %s", filename, evalErr.Backtrace())
		}
		return nil, fmt.Errorf("failed to evaluate %s: %w", filename, err)
	}

	if c.settings == nil {
		return nil, fmt.Errorf("failed to evaluate %s: settings() was never called", filename)
	}
	return c.settings, nil
}
