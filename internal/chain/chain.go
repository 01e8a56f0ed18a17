// Package chain previews the build chain the CI host would queue for a
// build type. Nothing is executed.
package chain

import (
	"fmt"
	"io"

	"github.com/sourceplane/pipecfg/internal/depgraph"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/resolve"
)

// Entry is one build type in a chain
type Entry struct {
	ID        string       `yaml:"id" json:"id"`
	Name      string       `yaml:"name" json:"name"`
	Project   string       `yaml:"project" json:"project"`
	Type      string       `yaml:"type" json:"type"`
	DependsOn []string     `yaml:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Steps     []model.Step `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// Chain is a target and its transitive snapshot dependencies, dependencies first
type Chain struct {
	Target  string  `yaml:"target" json:"target"`
	Entries []Entry `yaml:"entries" json:"entries"`
}

// Builder computes chains from analyzed settings
type Builder struct {
	analyzer *resolve.Analyzer
}

// NewBuilder creates a new chain builder
func NewBuilder(analyzer *resolve.Analyzer) *Builder {
	return &Builder{analyzer: analyzer}
}

// Chain returns the build chain ending at target
func (b *Builder) Chain(target string) (*Chain, error) {
	if _, err := b.analyzer.BuildType(target); err != nil {
		return nil, err
	}
	effective, err := b.analyzer.AnalyzeAll()
	if err != nil {
		return nil, err
	}

	deps := resolve.NewDependencyResolver(effective)
	included := deps.Closure(target)

	ordered, err := depgraph.NewGraph(deps.Graph()).Subgraph(included).TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to order chain of %s: %w", target, err)
	}

	c := &Chain{Target: target, Entries: make([]Entry, 0, len(ordered))}
	for _, id := range ordered {
		eff, err := b.analyzer.BuildType(id)
		if err != nil {
			return nil, err
		}
		entry := Entry{
			ID:      eff.ID,
			Name:    eff.Name,
			Project: eff.Project,
			Type:    string(eff.Type),
			Steps:   eff.Steps,
		}
		for _, dep := range deps.GetDependencies(id) {
			if included[dep] {
				entry.DependsOn = append(entry.DependsOn, dep)
			}
		}
		c.Entries = append(c.Entries, entry)
	}

	return c, nil
}

// IDs returns the entry ids in chain order
func (c *Chain) IDs() []string {
	ids := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Print writes the chain as the CI host would queue it
func (c *Chain) Print(w io.Writer) {
	for _, e := range c.Entries {
		fmt.Fprintf(w, "→ %s (%s/%s)\n", e.ID, e.Project, e.Type)
		for _, dep := range e.DependsOn {
			fmt.Fprintf(w, "  after %s\n", dep)
		}
		for i, step := range e.Steps {
			name := step.Name
			if name == "" {
				name = fmt.Sprintf("step %d", i+1)
			}
			fmt.Fprintf(w, "  - Step %s\n", name)
			if step.DockerImage != "" {
				fmt.Fprintf(w, "    image: %s\n", step.DockerImage)
			}
			fmt.Fprintf(w, "    %s\n", step.ScriptContent)
		}
	}
}
