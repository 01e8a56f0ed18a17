package secrets

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/sourceplane/pipecfg/internal/model"
)

// Status is the outcome of checking one reference
type Status string

const (
	StatusOK        Status = "ok"
	StatusMissing   Status = "missing"
	StatusUnchecked Status = "unchecked"
	StatusError     Status = "error"
)

// Reference is a secret reference found at a path in the settings tree
type Reference struct {
	Path string
	Ref  model.SecretRef
}

// Result is the check outcome for one Reference
type Result struct {
	Path    string `yaml:"path" json:"path"`
	Ref     string `yaml:"ref" json:"ref"`
	Status  Status `yaml:"status" json:"status"`
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// Checker dispatches references to the store registered for their scheme
type Checker struct {
	stores map[string]Store
}

// NewChecker creates a checker over the given stores
func NewChecker(stores ...Store) *Checker {
	c := &Checker{stores: make(map[string]Store, len(stores))}
	for _, s := range stores {
		c.stores[s.Scheme()] = s
	}
	return c
}

// Check returns one result per reference, in input order
func (c *Checker) Check(ctx context.Context, refs []Reference) []Result {
	logger := ctxlog.FromContext(ctx)
	results := make([]Result, 0, len(refs))

	for _, r := range refs {
		res := c.check(ctx, r)
		logger.Debug("Checked secret reference", "path", res.Path, "ref", res.Ref, "status", res.Status)
		results = append(results, res)
	}

	return results
}

func (c *Checker) check(ctx context.Context, r Reference) Result {
	res := Result{Path: r.Path, Ref: r.Ref.String()}

	scheme, locator, ok := r.Ref.Parse()
	if !ok {
		res.Status = StatusError
		res.Message = "not a secret reference"
		return res
	}

	if scheme == model.SchemeCredentialsJSON {
		if _, err := uuid.Parse(locator); err != nil {
			res.Status = StatusError
			res.Message = "credentialsJSON id is not a valid UUID"
			return res
		}
		res.Status = StatusUnchecked
		res.Message = "managed by the CI host"
		return res
	}

	store, exists := c.stores[scheme]
	if !exists {
		res.Status = StatusUnchecked
		res.Message = fmt.Sprintf("no %s store configured", scheme)
		return res
	}

	found, err := store.Exists(ctx, locator)
	switch {
	case err != nil:
		res.Status = StatusError
		res.Message = err.Error()
	case found:
		res.Status = StatusOK
	default:
		res.Status = StatusMissing
	}
	return res
}

// Summary counts results by status
func Summary(results []Result) map[Status]int {
	counts := make(map[Status]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// Collect lists every secret reference in the tree, with the same paths
// validation reports
func Collect(n *model.NormalizedSettings) []Reference {
	var refs []Reference
	add := func(path string, ref model.SecretRef) {
		if !ref.IsEmpty() {
			refs = append(refs, Reference{Path: path, Ref: ref})
		}
	}
	addSecure := func(path string, secure map[string]model.SecretRef) {
		names := make([]string, 0, len(secure))
		for name := range secure {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			add(path+"/secureParams/"+name, secure[name])
		}
	}
	addAuth := func(path string, a *model.AuthMethod) {
		if a == nil {
			return
		}
		add(path+"/password", a.Password)
		add(path+"/token", a.Token)
	}
	addSettings := func(path string, s *model.BuildSettings) {
		addSecure(path, s.SecureParams)
		for i, f := range s.Features {
			if f.CommitStatusPublisher != nil {
				addAuth(fmt.Sprintf("%s/features/%d/commitStatusPublisher/publisher/auth", path, i), f.CommitStatusPublisher.Publisher.Auth)
			}
		}
	}

	for _, id := range n.ProjectOrder {
		addSecure("projects/"+id, n.Projects[id].SecureParams)
	}
	for _, id := range n.VcsRootOrder {
		addAuth("vcsRoots/"+id+"/auth", n.VcsRoots[id].Auth)
	}
	for _, id := range n.TemplateOrder {
		addSettings("templates/"+id, &n.Templates[id].BuildSettings)
	}
	for _, id := range n.BuildTypeOrder {
		addSettings("buildTypes/"+id, &n.BuildTypes[id].BuildSettings)
	}

	return refs
}
