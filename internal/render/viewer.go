package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/resolve"
)

const rule = "═══════════════════════════════════════════════════════════"

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// SettingsViewer provides human-readable views of a settings tree
type SettingsViewer struct {
	normalized *model.NormalizedSettings
	analyzer   *resolve.Analyzer
}

// NewSettingsViewer creates a new settings viewer
func NewSettingsViewer(normalized *model.NormalizedSettings, analyzer *resolve.Analyzer) *SettingsViewer {
	if analyzer == nil {
		analyzer = resolve.NewAnalyzer(normalized)
	}
	return &SettingsViewer{normalized: normalized, analyzer: analyzer}
}

type treeItem struct {
	label    string
	children []treeItem
}

// ViewTree returns the project hierarchy with its VCS roots, templates and
// build types
func (sv *SettingsViewer) ViewTree() string {
	n := sv.normalized
	root := n.Root()
	if root == nil {
		return "No projects in settings"
	}

	var sb strings.Builder
	sb.WriteString(headingStyle.Render(fmt.Sprintf("%s [%s]", root.Name, root.ID)) + "\n")
	writeTree(&sb, sv.projectItems(root), "")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "Summary: %d projects, %d VCS roots, %d templates, %d build types\n",
		len(n.ProjectOrder), len(n.VcsRootOrder), len(n.TemplateOrder), len(n.BuildTypeOrder))

	return sb.String()
}

func (sv *SettingsViewer) projectItems(p *model.Project) []treeItem {
	items := make([]treeItem, 0)
	for _, root := range p.VcsRoots {
		items = append(items, treeItem{label: fmt.Sprintf("vcs %s %s", root.ID, mutedStyle.Render("("+root.URL+")"))})
	}
	for _, tmpl := range p.Templates {
		items = append(items, treeItem{label: fmt.Sprintf("template %s", tmpl.ID)})
	}
	for _, bt := range p.BuildTypes {
		label := fmt.Sprintf("buildType %s %q", bt.ID, bt.Name)
		if bt.IsComposite() {
			label += " [composite]"
		}
		if len(bt.Templates) > 0 {
			label += " ← " + strings.Join(bt.Templates, ", ")
		}
		items = append(items, treeItem{label: label})
	}
	for i := range p.SubProjects {
		sub := &p.SubProjects[i]
		items = append(items, treeItem{
			label:    headingStyle.Render(fmt.Sprintf("%s [%s]", sub.Name, sub.ID)),
			children: sv.projectItems(sub),
		})
	}
	return items
}

func writeTree(sb *strings.Builder, items []treeItem, indent string) {
	for i, item := range items {
		prefix, connector := "├─ ", "│  "
		if i == len(items)-1 {
			prefix, connector = "└─ ", "   "
		}
		sb.WriteString(indent + prefix + item.label + "\n")
		writeTree(sb, item.children, indent+connector)
	}
}

// ViewDependencies shows snapshot dependencies, including those inherited
// from templates
func (sv *SettingsViewer) ViewDependencies() (string, error) {
	effective, err := sv.analyzer.AnalyzeAll()
	if err != nil {
		return "", err
	}
	if len(effective) == 0 {
		return "No build types in settings", nil
	}
	deps := resolve.NewDependencyResolver(effective)

	var sb strings.Builder
	sb.WriteString(headingStyle.Render("Snapshot Dependencies") + "\n")
	sb.WriteString(rule + "\n\n")

	for i, eff := range effective {
		prefix := "├─ "
		if i == len(effective)-1 {
			prefix = "└─ "
		}
		fmt.Fprintf(&sb, "%s%s (%s)\n", prefix, eff.ID, eff.Project)

		direct := deps.GetDependencies(eff.ID)
		dependents := deps.GetDependents(eff.ID)
		if len(direct) == 0 && len(dependents) == 0 {
			sb.WriteString(mutedStyle.Render("   (no dependencies)") + "\n")
		}
		lines := make([]string, 0, len(direct)+len(dependents))
		for _, dep := range direct {
			lines = append(lines, "(depends on) "+dep)
		}
		for _, dep := range dependents {
			lines = append(lines, "(required by) "+dep)
		}
		for j, line := range lines {
			depPrefix := "  ├─ "
			if j == len(lines)-1 {
				depPrefix = "  └─ "
			}
			sb.WriteString(depPrefix + line + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// ViewBuildType shows one build type with its templates applied
func (sv *SettingsViewer) ViewBuildType(id string) (string, error) {
	eff, err := sv.analyzer.BuildType(id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(headingStyle.Render(fmt.Sprintf("%s [%s]", eff.ID, eff.Type)) + "\n")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "Name: %s\n", eff.Name)
	fmt.Fprintf(&sb, "Project: %s\n", eff.Project)
	if len(eff.Templates) > 0 {
		fmt.Fprintf(&sb, "Templates: %s\n", strings.Join(eff.Templates, ", "))
	}

	if len(eff.VcsRoots) > 0 {
		fmt.Fprintf(&sb, "VCS roots (from %s):\n", eff.VcsRootSource)
		for _, entry := range eff.VcsRoots {
			line := "  - " + entry.Root
			if entry.Absolute {
				line += " [absolute]"
			}
			if entry.CheckoutRules != "" {
				line += " " + strings.ReplaceAll(entry.CheckoutRules, "\n", "; ")
			}
			sb.WriteString(line + "\n")
		}
	} else if sv.analyzer.MissingVcsRoot(eff.ID) {
		sb.WriteString(warnStyle.Render("! no VCS root attached") + "\n")
	}

	if len(eff.Params) > 0 || len(eff.SecureParams) > 0 {
		sb.WriteString("Params:\n")
		for _, name := range sortedNames(eff.Params) {
			fmt.Fprintf(&sb, "  %s = %s\n", name, eff.Params[name])
		}
		for _, name := range sortedNames(eff.SecureParams) {
			fmt.Fprintf(&sb, "  %s = %s %s\n", name, eff.SecureParams[name], mutedStyle.Render("(secure)"))
		}
	}

	if len(eff.Steps) > 0 {
		sb.WriteString("Steps:\n")
		for i, step := range eff.Steps {
			prefix := "├─ "
			if i == len(eff.Steps)-1 {
				prefix = "└─ "
			}
			name := step.Name
			if name == "" {
				name = step.ID
			}
			if name == "" {
				name = fmt.Sprintf("step %d", i+1)
			}
			line := "  " + prefix + name
			if step.DockerImage != "" {
				line += " [" + step.DockerImage + "]"
			}
			// Truncate long scripts for readability
			script := strings.SplitN(step.ScriptContent, "\n", 2)[0]
			if len(script) > 60 {
				script = script[:57] + "..."
			}
			sb.WriteString(line + " | " + script + "\n")
		}
	}

	if len(eff.Features) > 0 {
		sb.WriteString("Features:\n")
		for _, f := range eff.Features {
			line := "  - " + string(f.Type)
			if f.ID != "" {
				line += " (" + f.ID + ")"
			}
			sb.WriteString(line + "\n")
		}
	}

	if len(eff.Dependencies) > 0 {
		sb.WriteString("Dependencies:\n")
		for _, d := range eff.Dependencies {
			fmt.Fprintf(&sb, "  - %s (on failure %s, reuse %s)\n", d.BuildType, d.OnDependencyFailure, d.ReuseBuilds)
		}
	}

	if fc := eff.FailureConditions; fc != nil {
		if fc.ExecutionTimeoutMin > 0 {
			fmt.Fprintf(&sb, "Timeout: %d min\n", fc.ExecutionTimeoutMin)
		}
		if fc.NonZeroExitCode != nil {
			fmt.Fprintf(&sb, "Fail on non-zero exit code: %t\n", *fc.NonZeroExitCode)
		}
	}
	if eff.ArtifactRules != "" {
		fmt.Fprintf(&sb, "Artifact rules: %s\n", strings.ReplaceAll(eff.ArtifactRules, "\n", "; "))
	}

	return sb.String(), nil
}
