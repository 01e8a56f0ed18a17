// Package rules parses rule lines such as "+:src/** => dist.zip", used by
// branch specs, artifact rules and report ingestion rules.
package rules

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/bmatcuk/doublestar"
)

// A path may contain "=>" only when separated by whitespace.
var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Arrow", Pattern: `=>`},
	{Name: "Sign", Pattern: `[+-]:`},
	{Name: "Path", Pattern: `[^\s]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type ruleLine struct {
	Sign   string `parser:"@Sign?"`
	Source string `parser:"@Path"`
	Target string `parser:"( Arrow @Path )?"`
}

var ruleParser = participle.MustBuild[ruleLine](
	participle.Lexer(ruleLexer),
	participle.Elide("Whitespace"),
)

// Rule is a single include or exclude line
type Rule struct {
	Exclude bool
	Pattern string
	Target  string // empty unless the line maps "pattern => target"
	Line    int    // 1-based line number in the source text
}

// String renders the rule in canonical form
func (r Rule) String() string {
	sign := "+:"
	if r.Exclude {
		sign = "-:"
	}
	if r.Target != "" {
		return fmt.Sprintf("%s%s => %s", sign, r.Pattern, r.Target)
	}
	return sign + r.Pattern
}

// Rules is an ordered rule list; later rules take precedence
type Rules []Rule

// Parse reads one rule per line, skipping blank lines
func Parse(text string) (Rules, error) {
	var result Rules
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		parsed, err := ruleParser.ParseString("", line)
		if err != nil {
			return nil, fmt.Errorf("line %d %q: %w", i+1, line, err)
		}

		result = append(result, Rule{
			Exclude: parsed.Sign == "-:",
			Pattern: parsed.Source,
			Target:  parsed.Target,
			Line:    i + 1,
		})
	}
	return result, nil
}

// HasTargets reports whether any rule maps to a target
func (rs Rules) HasTargets() bool {
	for _, r := range rs {
		if r.Target != "" {
			return true
		}
	}
	return false
}

// Match reports whether path is included. The last matching rule wins and a
// path matched by no rule is excluded.
func (rs Rules) Match(path string) (bool, error) {
	included := false
	for _, r := range rs {
		ok, err := doublestar.Match(r.Pattern, path)
		if err != nil {
			return false, fmt.Errorf("bad pattern %q on line %d: %w", r.Pattern, r.Line, err)
		}
		if ok {
			included = !r.Exclude
		}
	}
	return included, nil
}

// String joins the rules back into text, one per line
func (rs Rules) String() string {
	lines := make([]string, len(rs))
	for i, r := range rs {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}
