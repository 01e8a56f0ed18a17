package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/resolve"
	"gopkg.in/yaml.v3"
)

// Format names an export format
type Format string

const (
	FormatYAML          Format = "yaml"
	FormatJSON          Format = "json"
	FormatEffectiveYAML Format = "effective-yaml"
	FormatEffectiveJSON Format = "effective-json"
	FormatKotlin        Format = "kotlin"
	FormatDOT           Format = "dot"
)

// Formats lists every supported export format
var Formats = []Format{FormatYAML, FormatJSON, FormatEffectiveYAML, FormatEffectiveJSON, FormatKotlin, FormatDOT}

// ParseFormat checks a user-supplied format name
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	names := make([]string, 0, len(Formats))
	for _, f := range Formats {
		names = append(names, string(f))
	}
	return "", fmt.Errorf("unknown format %q (supported: %s)", s, strings.Join(names, ", "))
}

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".kts", ".kt":
		return FormatKotlin
	case ".dot", ".gv":
		return FormatDOT
	default:
		// Default to JSON if no extension
		return FormatJSON
	}
}

// Exporter renders a normalized settings tree
type Exporter struct {
	normalized *model.NormalizedSettings
	analyzer   *resolve.Analyzer
}

// NewExporter creates a new exporter
func NewExporter(normalized *model.NormalizedSettings, analyzer *resolve.Analyzer) *Exporter {
	if analyzer == nil {
		analyzer = resolve.NewAnalyzer(normalized)
	}
	return &Exporter{normalized: normalized, analyzer: analyzer}
}

// Effective returns every build type with its templates applied
func (e *Exporter) Effective() (*model.EffectiveSettings, error) {
	effective, err := e.analyzer.AnalyzeAll()
	if err != nil {
		return nil, err
	}
	out := &model.EffectiveSettings{
		Version:    e.normalized.Settings.Version,
		BuildTypes: make([]model.EffectiveBuildType, 0, len(effective)),
	}
	for _, eff := range effective {
		out.BuildTypes = append(out.BuildTypes, *eff)
	}
	return out, nil
}

// Render produces the settings in the given format
func (e *Exporter) Render(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return renderYAML(e.normalized.Settings)
	case FormatJSON:
		return renderJSON(e.normalized.Settings)
	case FormatEffectiveYAML, FormatEffectiveJSON:
		effective, err := e.Effective()
		if err != nil {
			return nil, err
		}
		if format == FormatEffectiveYAML {
			return renderYAML(effective)
		}
		return renderJSON(effective)
	case FormatKotlin:
		return []byte(RenderKotlin(e.normalized)), nil
	case FormatDOT:
		effective, err := e.analyzer.AnalyzeAll()
		if err != nil {
			return nil, err
		}
		return []byte(RenderDOT(effective)), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func renderJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func renderYAML(v interface{}) ([]byte, error) {
	return yaml.Marshal(v)
}

// WriteOutput renders to path, inferring the format from the extension when
// format is empty
func (e *Exporter) WriteOutput(path string, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}

	data, err := e.Render(format)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", format, path, err)
	}

	return nil
}

// DebugDump outputs debug information about the normalized tree
func (e *Exporter) DebugDump() string {
	n := e.normalized
	var sb strings.Builder
	fmt.Fprintf(&sb, "Settings: version %s\n", n.Settings.Version)
	fmt.Fprintf(&sb, "Projects: %d, VCS roots: %d, templates: %d, build types: %d\n\n",
		len(n.ProjectOrder), len(n.VcsRootOrder), len(n.TemplateOrder), len(n.BuildTypeOrder))

	for _, id := range n.ProjectOrder {
		fmt.Fprintf(&sb, "Project: %s\n", id)
		fmt.Fprintf(&sb, "  Name: %s\n", n.Projects[id].Name)
		fmt.Fprintf(&sb, "  Parent: %s\n", n.Parents[id])
	}
	sb.WriteString("\n")

	for _, id := range n.BuildTypeOrder {
		bt := n.BuildTypes[id]
		fmt.Fprintf(&sb, "BuildType: %s\n", id)
		fmt.Fprintf(&sb, "  Project: %s\n", n.Owners[id])
		fmt.Fprintf(&sb, "  Type: %s\n", bt.Type)
		fmt.Fprintf(&sb, "  Templates: %v\n", bt.Templates)
		eff, err := e.analyzer.BuildType(id)
		if err != nil {
			fmt.Fprintf(&sb, "  Error: %v\n", err)
		} else {
			fmt.Fprintf(&sb, "  Steps: %d (own %d)\n", len(eff.Steps), len(bt.Steps))
			fmt.Fprintf(&sb, "  Features: %d (own %d)\n", len(eff.Features), len(bt.Features))
			fmt.Fprintf(&sb, "  VcsRoots: %d (from %s)\n", len(eff.VcsRoots), eff.VcsRootSource)
			fmt.Fprintf(&sb, "  DependsOn: %v\n", dependencyIDs(eff))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func dependencyIDs(eff *model.EffectiveBuildType) []string {
	ids := make([]string, 0, len(eff.Dependencies))
	for _, d := range eff.Dependencies {
		ids = append(ids, d.BuildType)
	}
	return ids
}
