package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/resolve"
)

// BuildTypeInfo holds the listing view of an effective build type
type BuildTypeInfo struct {
	ID            string
	Name          string
	Project       string
	Type          string
	Templates     []string
	VcsRoots      []string
	VcsRootSource string
	MissingVcs    bool
	DependsOn     []string
	RequiredBy    []string
	Downstream    []string // everything that transitively depends on this build type
	Steps         []StepInfo
	Features      []string
	Timeout       int
}

// StepInfo holds information about an effective step
type StepInfo struct {
	ID     string
	Name   string
	Image  string
	Script string
}

// ExtractBuildTypeInfo collects what the listing shows for one build type
func ExtractBuildTypeInfo(eff *model.EffectiveBuildType, analyzer *resolve.Analyzer, deps *resolve.DependencyResolver) *BuildTypeInfo {
	info := &BuildTypeInfo{
		ID:            eff.ID,
		Name:          eff.Name,
		Project:       eff.Project,
		Type:          string(eff.Type),
		Templates:     eff.Templates,
		VcsRootSource: eff.VcsRootSource,
		MissingVcs:    analyzer.MissingVcsRoot(eff.ID),
		DependsOn:     deps.GetDependencies(eff.ID),
		RequiredBy:    deps.GetDependents(eff.ID),
	}

	for id := range deps.GetTransitiveDependents(eff.ID) {
		info.Downstream = append(info.Downstream, id)
	}
	sort.Strings(info.Downstream)

	for _, root := range eff.VcsRoots {
		info.VcsRoots = append(info.VcsRoots, root.Root)
	}
	for _, step := range eff.Steps {
		name := step.Name
		if name == "" {
			name = step.ID
		}
		info.Steps = append(info.Steps, StepInfo{
			ID:     step.ID,
			Name:   name,
			Image:  step.DockerImage,
			Script: step.ScriptContent,
		})
	}
	for _, f := range eff.Features {
		info.Features = append(info.Features, string(f.Type))
	}
	if eff.FailureConditions != nil {
		info.Timeout = eff.FailureConditions.ExecutionTimeoutMin
	}

	return info
}

// PrintShortFormat prints build type info in short format
func PrintShortFormat(info *BuildTypeInfo) {
	kind := ""
	if info.Type == string(model.BuildTypeComposite) {
		kind = " [composite]"
	}
	fmt.Printf("%-40s  %s%s\n", info.ID, info.Name, kind)
}

// PrintLongFormat prints build type info in long format
func PrintLongFormat(info *BuildTypeInfo, expand bool) {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Build type: %s\n", info.ID)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	fmt.Printf("  Name:      %s\n", info.Name)
	fmt.Printf("  Project:   %s\n", info.Project)
	fmt.Printf("  Type:      %s\n", info.Type)
	if len(info.Templates) > 0 {
		fmt.Printf("  Templates: %s\n", strings.Join(info.Templates, ", "))
	}
	if info.Timeout > 0 {
		fmt.Printf("  Timeout:   %d min\n", info.Timeout)
	}
	fmt.Printf("\n")

	switch {
	case info.MissingVcs:
		fmt.Printf("VCS roots:\n  ! none attached\n\n")
	case len(info.VcsRoots) > 0:
		fmt.Printf("VCS roots (from %s):\n", info.VcsRootSource)
		for _, root := range info.VcsRoots {
			fmt.Printf("  • %s\n", root)
		}
		fmt.Printf("\n")
	}

	if len(info.DependsOn) > 0 || len(info.RequiredBy) > 0 {
		fmt.Printf("Snapshot dependencies:\n")
		for _, dep := range info.DependsOn {
			fmt.Printf("  after   %s\n", dep)
		}
		for _, dep := range info.RequiredBy {
			fmt.Printf("  before  %s\n", dep)
		}
		fmt.Printf("\n")
	}

	if len(info.Downstream) > len(info.RequiredBy) {
		fmt.Printf("Downstream (transitive):\n  %s\n\n", strings.Join(info.Downstream, ", "))
	}

	if len(info.Features) > 0 {
		fmt.Printf("Features:\n")
		for _, f := range info.Features {
			fmt.Printf("  • %s\n", f)
		}
		fmt.Printf("\n")
	}

	if len(info.Steps) > 0 {
		fmt.Printf("Steps:\n")
		for i, step := range info.Steps {
			fmt.Printf("  %d. %s\n", i+1, step.Name)
			if step.Image != "" {
				fmt.Printf("     Image: %s\n", step.Image)
			}
			if expand {
				for _, line := range strings.Split(strings.TrimRight(step.Script, "\n"), "\n") {
					fmt.Printf("     | %s\n", line)
				}
			}
		}
		fmt.Printf("\n")
	}

	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
}

// PrintTemplate prints a template summary; long adds the users
func PrintTemplate(t resolve.TemplateSummary, long bool) {
	if !long {
		fmt.Printf("%-40s  %s (%d build types)\n", t.ID, t.Name, len(t.UsedBy))
		return
	}

	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Template: %s\n", t.ID)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("  Name:     %s\n", t.Name)
	fmt.Printf("  Project:  %s\n", t.Project)
	fmt.Printf("  Steps:    %d\n", t.Steps)
	fmt.Printf("  Features: %d\n\n", t.Features)
	if len(t.UsedBy) == 0 {
		fmt.Printf("Used by:\n  (unused)\n\n")
		return
	}
	fmt.Printf("Used by:\n")
	for _, id := range t.UsedBy {
		fmt.Printf("  • %s\n", id)
	}
	fmt.Printf("\n")
}
