package render

import (
	"fmt"
	"strings"

	"github.com/sourceplane/pipecfg/internal/model"
)

func dotQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}

// RenderDOT renders snapshot dependencies as a Graphviz digraph. Edges point
// from a dependency to the build type waiting on it.
func RenderDOT(effective []*model.EffectiveBuildType) string {
	var sb strings.Builder
	sb.WriteString("digraph snapshots {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box];\n")

	for _, eff := range effective {
		attrs := fmt.Sprintf("label=%s", dotQuote(eff.ID+"\n"+eff.Name))
		if eff.Type == model.BuildTypeComposite {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(&sb, "  %s [%s];\n", dotQuote(eff.ID), attrs)
	}
	for _, eff := range effective {
		for _, d := range eff.Dependencies {
			fmt.Fprintf(&sb, "  %s -> %s;\n", dotQuote(d.BuildType), dotQuote(eff.ID))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
