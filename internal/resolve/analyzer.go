package resolve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sourceplane/pipecfg/internal/model"
)

// Analyzer caches effective build types and answers questions about them
type Analyzer struct {
	normalized *model.NormalizedSettings
	resolver   *Resolver
	effective  map[string]*model.EffectiveBuildType
	missingVcs map[string]bool
}

// NewAnalyzer creates a new build type analyzer
func NewAnalyzer(normalized *model.NormalizedSettings) *Analyzer {
	return &Analyzer{
		normalized: normalized,
		resolver:   NewResolver(normalized),
	}
}

// AnalyzeAll resolves every build type in declaration order. A missing VCS
// root does not stop the analysis; see MissingVcsRoot.
func (a *Analyzer) AnalyzeAll() ([]*model.EffectiveBuildType, error) {
	if a.effective == nil {
		effective := make(map[string]*model.EffectiveBuildType, len(a.normalized.BuildTypeOrder))
		missing := make(map[string]bool)

		for _, id := range a.normalized.BuildTypeOrder {
			eff, err := a.resolver.Resolve(id)
			if errors.Is(err, ErrMissingVcsRoot) {
				missing[id] = true
			} else if err != nil {
				return nil, err
			}
			effective[id] = eff
		}

		a.effective = effective
		a.missingVcs = missing
	}

	result := make([]*model.EffectiveBuildType, 0, len(a.effective))
	for _, id := range a.normalized.BuildTypeOrder {
		result = append(result, a.effective[id])
	}
	return result, nil
}

// BuildType returns the effective build type for id
func (a *Analyzer) BuildType(id string) (*model.EffectiveBuildType, error) {
	if _, err := a.AnalyzeAll(); err != nil {
		return nil, err
	}
	eff, exists := a.effective[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuildType, id)
	}
	return eff, nil
}

// MissingVcsRoot reports whether the regular build type id ended up without
// any VCS root
func (a *Analyzer) MissingVcsRoot(id string) bool {
	if _, err := a.AnalyzeAll(); err != nil {
		return false
	}
	return a.missingVcs[id]
}

// TemplateSummary describes a template and the build types applying it
type TemplateSummary struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Project  string   `yaml:"project" json:"project"`
	Steps    int      `yaml:"steps" json:"steps"`
	Features int      `yaml:"features" json:"features"`
	UsedBy   []string `yaml:"usedBy" json:"usedBy"`
}

// Templates lists all templates in declaration order with their users
func (a *Analyzer) Templates() []TemplateSummary {
	usage := make(map[string][]string)
	for _, btID := range a.normalized.BuildTypeOrder {
		for _, tmplID := range a.normalized.BuildTypes[btID].Templates {
			usage[tmplID] = append(usage[tmplID], btID)
		}
	}

	result := make([]TemplateSummary, 0, len(a.normalized.TemplateOrder))
	for _, id := range a.normalized.TemplateOrder {
		tmpl := a.normalized.Templates[id]
		usedBy := usage[id]
		if usedBy == nil {
			usedBy = []string{}
		}
		sort.Strings(usedBy)
		result = append(result, TemplateSummary{
			ID:       id,
			Name:     tmpl.Name,
			Project:  a.normalized.Owners[id],
			Steps:    len(tmpl.Steps),
			Features: len(tmpl.Features),
			UsedBy:   usedBy,
		})
	}
	return result
}
