package rules

import (
	"fmt"

	"github.com/sourceplane/pipecfg/internal/model"
)

// Result is the outcome of matching one path against one rule set of a
// build type
type Result struct {
	Source   string `yaml:"source" json:"source"` // e.g. artifactRules, features/1/xmlReport/rules
	Rules    string `yaml:"rules" json:"rules"`
	Included bool   `yaml:"included" json:"included"`
}

// MatchBuildType matches path against every rule set of an effective build
// type: checkout rules, artifact rules and report rules. Empty rule sets are
// skipped.
func MatchBuildType(eff *model.EffectiveBuildType, path string) ([]Result, error) {
	var results []Result
	add := func(source, text string) error {
		if text == "" {
			return nil
		}
		rs, err := Parse(text)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		included, err := rs.Match(path)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		results = append(results, Result{Source: source, Rules: rs.String(), Included: included})
		return nil
	}

	for _, entry := range eff.VcsRoots {
		if err := add("vcsRoots/"+entry.Root+"/checkoutRules", entry.CheckoutRules); err != nil {
			return nil, err
		}
	}
	if err := add("artifactRules", eff.ArtifactRules); err != nil {
		return nil, err
	}
	for i, f := range eff.Features {
		if f.XMLReport == nil {
			continue
		}
		if err := add(fmt.Sprintf("features/%d/xmlReport/rules", i), f.XMLReport.Rules); err != nil {
			return nil, err
		}
	}
	return results, nil
}
