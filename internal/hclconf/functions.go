package hclconf

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// newEvalContext exposes the secret reference builders to settings files:
//
//	password = credential("757b93d4-4abe-4211-a875-d15bb135d3da")
//	token    = env_secret("GITHUB_TOKEN")
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"credential":   secretRefFunc(model.SchemeCredentialsJSON, validateCredentialID),
			"env_secret":   secretRefFunc(model.SchemeEnv, nil),
			"redis_secret": secretRefFunc(model.SchemeRedis, nil),
			"gcp_secret":   secretRefFunc(model.SchemeGCPSecret, nil),
		},
	}
}

func secretRefFunc(scheme string, check func(string) error) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "locator", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			locator := args[0].AsString()
			if locator == "" {
				return cty.NilVal, function.NewArgErrorf(0, "%s reference must not be empty", scheme)
			}
			if check != nil {
				if err := check(locator); err != nil {
					return cty.NilVal, function.NewArgError(0, err)
				}
			}
			return cty.StringVal(string(model.NewSecretRef(scheme, locator))), nil
		},
	})
}

func validateCredentialID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("credential id %q is not a UUID: %w", id, err)
	}
	return nil
}
