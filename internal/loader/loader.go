package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/sourceplane/pipecfg/internal/hclconf"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/schema"
	"github.com/sourceplane/pipecfg/internal/starlarkconf"
	"gopkg.in/yaml.v3"
)

// SettingsFiles are looked up, in order, when Load is given a directory
var SettingsFiles = []string{"settings.yaml", "settings.yml", "settings.json", "settings.hcl", "settings.star"}

// Loader reads settings trees in any supported syntax
type Loader struct {
	validator *schema.Validator
}

// New creates a loader with the embedded schema compiled
func New() (*Loader, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Loader{validator: validator}, nil
}

// Load is a shorthand for New followed by Loader.Load
func Load(ctx context.Context, path string) (*model.Settings, error) {
	l, err := New()
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, path)
}

// ResolvePath maps a directory to the settings file inside it
func ResolvePath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to access settings path %s: %w", path, err)
	}
	if !info.IsDir() {
		return path, nil
	}

	for _, name := range SettingsFiles {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no settings file found in %s (looked for %s)", path, strings.Join(SettingsFiles, ", "))
}

// Load reads a settings file, or the settings file inside a directory,
// dispatching on its extension
func (l *Loader) Load(ctx context.Context, path string) (*model.Settings, error) {
	logger := ctxlog.FromContext(ctx)

	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loading settings", "path", resolved)

	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yaml", ".yml", ".json":
		return l.loadDocument(ctx, resolved)
	case ".hcl":
		return hclconf.LoadFile(ctx, resolved)
	case ".star":
		return starlarkconf.LoadFile(ctx, resolved)
	default:
		return nil, fmt.Errorf("unsupported settings file extension %q: %s", ext, resolved)
	}
}

// loadDocument loads a YAML or JSON settings document, checking it against
// the schema before decoding and expanding project includes
func (l *Loader) loadDocument(ctx context.Context, path string) (*model.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if err := l.validator.ValidateDocument(raw); err != nil {
		return nil, &SchemaError{Path: path, Err: err}
	}

	var settings model.Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings file %s: %w", path, err)
	}

	visited := map[string]bool{absPath(path): true}
	if err := l.expandIncludes(ctx, &settings.Project, filepath.Dir(path), visited); err != nil {
		return nil, err
	}

	return &settings, nil
}

// expandIncludes resolves include globs relative to baseDir, appending each
// matched project file as a sub-project. Included files may include others.
func (l *Loader) expandIncludes(ctx context.Context, project *model.Project, baseDir string, visited map[string]bool) error {
	logger := ctxlog.FromContext(ctx)

	patterns := project.Include
	project.Include = nil

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(filepath.Join(baseDir, pattern))
		if err != nil {
			return fmt.Errorf("failed to evaluate include pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("include pattern %s matched no files", pattern)
		}
		sort.Strings(matches)

		for _, match := range matches {
			key := absPath(match)
			if visited[key] {
				return fmt.Errorf("include cycle: %s is already loaded", match)
			}
			visited[key] = true

			sub, err := l.loadProject(match)
			if err != nil {
				return err
			}
			logger.Debug("Included project", "path", match, "project", sub.Name)

			if err := l.expandIncludes(ctx, sub, filepath.Dir(match), visited); err != nil {
				return err
			}
			project.SubProjects = append(project.SubProjects, *sub)
		}
	}

	for i := range project.SubProjects {
		if err := l.expandIncludes(ctx, &project.SubProjects[i], baseDir, visited); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadProject(path string) (*model.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}
	if err := l.validator.ValidateProject(raw); err != nil {
		return nil, &SchemaError{Path: path, Err: err}
	}

	var project model.Project
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to decode project file %s: %w", path, err)
	}
	return &project, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// SchemaError reports a document that does not match the settings schema
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	violations := schema.Violations(e.Err)
	if len(violations) == 0 {
		return fmt.Sprintf("%s failed schema validation: %v", e.Path, e.Err)
	}
	lines := make([]string, 0, len(violations))
	for _, v := range violations {
		lines = append(lines, "  "+v.String())
	}
	return fmt.Sprintf("%s failed schema validation:\n%s", e.Path, strings.Join(lines, "\n"))
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Violations lists the individual schema failures
func (e *SchemaError) Violations() []schema.Violation {
	return schema.Violations(e.Err)
}
