package validate

import (
	"fmt"
	"strings"

	"github.com/sourceplane/pipecfg/internal/model"
)

// PredefinedPrefixes name parameters supplied by the CI host at build time
var PredefinedPrefixes = []string{"teamcity.", "build.", "system.", "vcsroot.", "dep.", "env."}

// ParamRefs extracts %name% references from text. "%%" is an escaped
// percent sign and a % not closing a valid name is literal.
func ParamRefs(text string) []string {
	var refs []string
	for i := 0; i < len(text); i++ {
		if text[i] != '%' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '%' {
			i++
			continue
		}
		end := strings.IndexByte(text[i+1:], '%')
		if end < 0 {
			break
		}
		name := text[i+1 : i+1+end]
		if paramNamePattern.MatchString(name) {
			refs = append(refs, name)
			i += end + 1
		}
	}
	return refs
}

func isPredefined(name string) bool {
	for _, prefix := range PredefinedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// checkParamRefs requires every reference in step scripts to resolve against
// the effective parameters or carry a host-supplied prefix
func (v *validator) checkParamRefs(path string, eff *model.EffectiveBuildType) {
	for i, step := range eff.Steps {
		for _, name := range ParamRefs(step.ScriptContent) {
			if _, ok := eff.Params[name]; ok {
				continue
			}
			if _, ok := eff.SecureParams[name]; ok {
				continue
			}
			if isPredefined(name) {
				continue
			}
			v.errorf(fmt.Sprintf("%s/steps/%d/scriptContent", path, i), "reference to undefined parameter %%%s%%", name)
		}
	}
}
