// Package validate checks a settings tree in a single pass and reports every
// problem found instead of stopping at the first one.
package validate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sourceplane/pipecfg/internal/depgraph"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/normalize"
	"github.com/sourceplane/pipecfg/internal/resolve"
)

// Severity grades an Issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding
type Issue struct {
	Severity Severity `yaml:"severity" json:"severity"`
	Path     string   `yaml:"path" json:"path"`
	Message  string   `yaml:"message" json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Options tune validation
type Options struct {
	// Strict turns a regular build type without VCS roots into an error
	Strict bool
}

// Result holds the findings and the intermediate forms computed on the way
type Result struct {
	Issues     []Issue
	Normalized *model.NormalizedSettings // nil when structural problems stopped validation
	Analyzer   *resolve.Analyzer
}

// HasErrors reports whether any issue is an error
func (r *Result) HasErrors() bool {
	return len(r.Errors()) > 0
}

// Errors returns the error-severity issues
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(severity Severity) []Issue {
	out := make([]Issue, 0)
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}

type validator struct {
	opts     Options
	n        *model.NormalizedSettings
	analyzer *resolve.Analyzer
	issues   []Issue
}

func (v *validator) errorf(path, format string, args ...interface{}) {
	v.issues = append(v.issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) warnf(path, format string, args ...interface{}) {
	v.issues = append(v.issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate normalizes settings in place and runs every check
func Validate(settings *model.Settings, opts Options) *Result {
	normalized, err := normalize.NormalizeSettings(settings)
	if err != nil {
		result := &Result{}
		var nerr *normalize.Error
		if errors.As(err, &nerr) {
			for _, p := range nerr.Problems {
				result.Issues = append(result.Issues, Issue{Severity: SeverityError, Path: p.Path, Message: p.Message})
			}
		} else {
			result.Issues = append(result.Issues, Issue{Severity: SeverityError, Path: "/", Message: err.Error()})
		}
		return result
	}

	return ValidateNormalized(normalized, opts)
}

// ValidateNormalized runs every check on an already normalized tree
func ValidateNormalized(normalized *model.NormalizedSettings, opts Options) *Result {
	v := &validator{
		opts:     opts,
		n:        normalized,
		analyzer: resolve.NewAnalyzer(normalized),
	}

	if normalized.Settings != nil && normalized.Settings.Version == "" {
		v.errorf("version", "settings must declare a version")
	}

	for _, id := range normalized.ProjectOrder {
		v.checkProject(id, normalized.Projects[id])
	}
	for _, id := range normalized.VcsRootOrder {
		v.checkVcsRoot(id, normalized.VcsRoots[id])
	}
	for _, id := range normalized.TemplateOrder {
		tmpl := normalized.Templates[id]
		path := "templates/" + id
		v.checkID(path, id)
		v.checkBuildSettings(path, normalized.Owners[id], &tmpl.BuildSettings)
	}

	// templates must resolve before effective build types can be computed
	resolvable := true
	for _, id := range normalized.BuildTypeOrder {
		if !v.checkBuildType(id, normalized.BuildTypes[id]) {
			resolvable = false
		}
	}

	if resolvable {
		v.checkEffective()
	}

	return &Result{Issues: v.issues, Normalized: normalized, Analyzer: v.analyzer}
}

// checkEffective runs the checks that need templates applied
func (v *validator) checkEffective() {
	effective, err := v.analyzer.AnalyzeAll()
	if err != nil {
		v.errorf("buildTypes", "%v", err)
		return
	}

	deps := make(map[string][]string, len(effective))
	for _, eff := range effective {
		path := "buildTypes/" + eff.ID

		if eff.Type == model.BuildTypeComposite {
			if len(eff.Steps) > 0 {
				v.errorf(path, "composite build type must not have steps (has %d)", len(eff.Steps))
			}
			if len(eff.Dependencies) == 0 {
				v.warnf(path, "composite build type has no snapshot dependencies")
			}
		} else if v.analyzer.MissingVcsRoot(eff.ID) {
			if v.opts.Strict {
				v.errorf(path, "no VCS root attached directly or through a template")
			} else {
				v.warnf(path, "no VCS root attached directly or through a template")
			}
		}

		targets := make([]string, 0, len(eff.Dependencies))
		for i, d := range eff.Dependencies {
			depPath := fmt.Sprintf("%s/dependencies/%d", path, i)
			switch {
			case d.BuildType == eff.ID:
				v.errorf(depPath, "build type %s depends on itself", eff.ID)
			case v.n.BuildTypes[d.BuildType] == nil:
				v.errorf(depPath, "snapshot dependency on unknown build type %s", d.BuildType)
			default:
				targets = append(targets, d.BuildType)
			}
		}
		deps[eff.ID] = targets

		v.checkParamRefs(path, eff)
	}

	if err := depgraph.NewGraph(deps).DetectCycles(); err != nil {
		var cycle *depgraph.CycleError
		if errors.As(err, &cycle) {
			v.errorf("buildTypes/"+cycle.Path[0], "%v", err)
		} else {
			v.errorf("buildTypes", "%v", err)
		}
	}
}

// sortedKeys returns map keys in order so issues come out deterministically
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
