package resolve

import (
	"errors"
	"fmt"

	"github.com/sourceplane/pipecfg/internal/model"
)

var (
	// ErrMissingVcsRoot is returned for a regular build type that has no VCS
	// root of its own and inherits none from its templates
	ErrMissingVcsRoot = errors.New("no VCS root attached")

	// ErrUnknownBuildType is returned when an id names no build type
	ErrUnknownBuildType = errors.New("unknown build type")
)

// Resolver applies templates to build types
type Resolver struct {
	normalized *model.NormalizedSettings
}

// NewResolver creates a new resolver
func NewResolver(normalized *model.NormalizedSettings) *Resolver {
	return &Resolver{normalized: normalized}
}

// Resolve produces the effective build type. On ErrMissingVcsRoot the
// effective build type is still returned.
func (r *Resolver) Resolve(buildTypeID string) (*model.EffectiveBuildType, error) {
	bt, exists := r.normalized.BuildTypes[buildTypeID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuildType, buildTypeID)
	}

	templates := make([]*model.Template, 0, len(bt.Templates))
	for _, id := range bt.Templates {
		tmpl, ok := r.normalized.Templates[id]
		if !ok {
			return nil, fmt.Errorf("build type %s: unknown template %s", bt.ID, id)
		}
		templates = append(templates, tmpl)
	}

	projectID := r.normalized.Owners[bt.ID]
	eff := &model.EffectiveBuildType{
		ID:        bt.ID,
		Name:      bt.Name,
		Project:   projectID,
		Type:      bt.Type,
		Templates: append([]string(nil), bt.Templates...),
	}

	// 1. Project params, root first
	// 2. Template params, in order
	// 3. Build type params (highest priority)
	eff.Params = make(map[string]string)
	eff.SecureParams = make(map[string]model.SecretRef)
	ancestors := r.normalized.Ancestors(projectID)
	for i := len(ancestors) - 1; i >= 0; i-- {
		if p, ok := r.normalized.Projects[ancestors[i]]; ok {
			mergeParams(eff, p.Params, p.SecureParams)
		}
	}
	for _, tmpl := range templates {
		mergeParams(eff, tmpl.Params, tmpl.SecureParams)
	}
	mergeParams(eff, bt.Params, bt.SecureParams)

	disabled := make(map[string]bool)
	for _, tmpl := range templates {
		eff.Steps = mergeSteps(eff.Steps, tmpl.Steps)
		eff.Features = mergeFeatures(eff.Features, tmpl.Features)
		eff.Dependencies = mergeDependencies(eff.Dependencies, tmpl.Dependencies)
		eff.FailureConditions = mergeFailureConditions(eff.FailureConditions, tmpl.FailureConditions)
		if tmpl.ArtifactRules != "" {
			eff.ArtifactRules = tmpl.ArtifactRules
		}
		for _, id := range tmpl.DisabledSettings {
			disabled[id] = true
		}
	}
	eff.Steps = mergeSteps(eff.Steps, bt.Steps)
	eff.Features = mergeFeatures(eff.Features, bt.Features)
	eff.Dependencies = mergeDependencies(eff.Dependencies, bt.Dependencies)
	eff.FailureConditions = mergeFailureConditions(eff.FailureConditions, bt.FailureConditions)
	if bt.ArtifactRules != "" {
		eff.ArtifactRules = bt.ArtifactRules
	}
	for _, id := range bt.DisabledSettings {
		disabled[id] = true
	}
	eff.Steps = dropDisabledSteps(eff.Steps, disabled)
	eff.Features = dropDisabledFeatures(eff.Features, disabled)

	// VCS roots are taken whole from the first source that has any
	if bt.Vcs != nil && len(bt.Vcs.Roots) > 0 {
		eff.VcsRoots = append([]model.VcsRootEntry(nil), bt.Vcs.Roots...)
		eff.VcsRootSource = bt.ID
	} else {
		for _, tmpl := range templates {
			if tmpl.Vcs != nil && len(tmpl.Vcs.Roots) > 0 {
				eff.VcsRoots = append([]model.VcsRootEntry(nil), tmpl.Vcs.Roots...)
				eff.VcsRootSource = tmpl.ID
				break
			}
		}
	}

	if len(eff.Params) == 0 {
		eff.Params = nil
	}
	if len(eff.SecureParams) == 0 {
		eff.SecureParams = nil
	}

	if len(eff.VcsRoots) == 0 && !bt.IsComposite() {
		return eff, fmt.Errorf("build type %s: %w", bt.ID, ErrMissingVcsRoot)
	}
	return eff, nil
}

func mergeParams(eff *model.EffectiveBuildType, params map[string]string, secure map[string]model.SecretRef) {
	for k, v := range params {
		eff.Params[k] = v
	}
	for k, v := range secure {
		eff.SecureParams[k] = v
	}
}

// mergeSteps replaces inherited steps with the same id in place and
// appends the rest
func mergeSteps(base, overrides []model.Step) []model.Step {
	for _, step := range overrides {
		replaced := false
		if step.ID != "" {
			for i := range base {
				if base[i].ID == step.ID {
					base[i] = step
					replaced = true
					break
				}
			}
		}
		if !replaced {
			base = append(base, step)
		}
	}
	return base
}

func mergeFeatures(base, overrides []model.Feature) []model.Feature {
	for _, f := range overrides {
		replaced := false
		if f.ID != "" {
			for i := range base {
				if base[i].ID == f.ID {
					base[i] = f
					replaced = true
					break
				}
			}
		}
		if !replaced {
			base = append(base, f)
		}
	}
	return base
}

func mergeDependencies(base, overrides []model.SnapshotDependency) []model.SnapshotDependency {
	for _, d := range overrides {
		replaced := false
		for i := range base {
			if base[i].BuildType == d.BuildType {
				base[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			base = append(base, d)
		}
	}
	return base
}

func mergeFailureConditions(base, override *model.FailureConditions) *model.FailureConditions {
	if override == nil {
		return base
	}
	merged := model.FailureConditions{}
	if base != nil {
		merged = *base
	}
	if override.ExecutionTimeoutMin != 0 {
		merged.ExecutionTimeoutMin = override.ExecutionTimeoutMin
	}
	if override.NonZeroExitCode != nil {
		merged.NonZeroExitCode = override.NonZeroExitCode
	}
	return &merged
}

func dropDisabledSteps(steps []model.Step, disabled map[string]bool) []model.Step {
	if len(disabled) == 0 {
		return steps
	}
	kept := steps[:0]
	for _, s := range steps {
		if s.ID == "" || !disabled[s.ID] {
			kept = append(kept, s)
		}
	}
	return kept
}

func dropDisabledFeatures(features []model.Feature, disabled map[string]bool) []model.Feature {
	if len(disabled) == 0 {
		return features
	}
	kept := features[:0]
	for _, f := range features {
		if f.ID == "" || !disabled[f.ID] {
			kept = append(kept, f)
		}
	}
	return kept
}
