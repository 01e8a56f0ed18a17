package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sourceplane/pipecfg/internal/model"
	"github.com/sourceplane/pipecfg/internal/rules"
)

const maxIDLength = 225

var (
	idPattern        = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	paramNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

func (v *validator) checkID(path, id string) {
	if len(id) > maxIDLength {
		v.errorf(path, "id %s is longer than %d characters", id, maxIDLength)
	}
	if !idPattern.MatchString(id) {
		v.errorf(path, "id %q must start with a latin letter and contain only latin letters, digits and underscores", id)
	}
}

func (v *validator) checkProject(id string, p *model.Project) {
	path := "projects/" + id
	if id != model.RootProjectID {
		v.checkID(path, id)
	}
	v.checkParams(path, p.Params, p.SecureParams)
}

func (v *validator) checkParams(path string, params map[string]string, secure map[string]model.SecretRef) {
	for _, name := range sortedKeys(params) {
		if !paramNamePattern.MatchString(name) {
			v.errorf(path+"/params/"+name, "invalid parameter name %q", name)
		}
	}
	for _, name := range sortedKeys(secure) {
		if !paramNamePattern.MatchString(name) {
			v.errorf(path+"/secureParams/"+name, "invalid parameter name %q", name)
		}
		if _, dup := params[name]; dup {
			v.errorf(path+"/secureParams/"+name, "parameter %s is declared both plain and secure", name)
		}
		v.checkSecret(path+"/secureParams/"+name, secure[name], true)
	}
}

// checkSecret rejects literal credentials. The value itself never appears in
// a message.
func (v *validator) checkSecret(path string, ref model.SecretRef, required bool) {
	if ref.IsEmpty() {
		if required {
			v.errorf(path, "secret reference is empty")
		}
		return
	}

	scheme, locator, ok := ref.Parse()
	if !ok {
		v.errorf(path, "literal secret value; use a reference such as credentialsJSON:<uuid> or env:<NAME>")
		return
	}
	if scheme == model.SchemeCredentialsJSON {
		if _, err := uuid.Parse(locator); err != nil {
			v.errorf(path, "credentialsJSON reference %q is not a valid UUID", locator)
		}
	}
}

func (v *validator) checkAuth(path string, a *model.AuthMethod) {
	if a == nil {
		return
	}
	switch a.Type {
	case model.AuthAnonymous:
		if !a.Password.IsEmpty() || !a.Token.IsEmpty() {
			v.warnf(path, "anonymous auth ignores the configured credentials")
		}
	case model.AuthPassword:
		v.checkSecret(path+"/password", a.Password, true)
	case model.AuthPersonalToken:
		v.checkSecret(path+"/token", a.Token, true)
	default:
		v.errorf(path+"/type", "unknown auth type %q", a.Type)
	}
}

func (v *validator) checkVcsRoot(id string, root *model.VcsRoot) {
	path := "vcsRoots/" + id
	v.checkID(path, id)

	if root.Type != "git" {
		v.errorf(path+"/type", "unsupported VCS type %q", root.Type)
	}
	switch root.CheckoutPolicy {
	case model.CheckoutAuto, model.CheckoutUseMirrors, model.CheckoutNoMirrors, model.CheckoutShallowClone:
	default:
		v.errorf(path+"/checkoutPolicy", "unknown checkout policy %q", root.CheckoutPolicy)
	}

	if root.BranchSpec != "" {
		spec, err := rules.Parse(root.BranchSpec)
		if err != nil {
			v.errorf(path+"/branchSpec", "invalid branch spec: %v", err)
		} else if spec.HasTargets() {
			v.errorf(path+"/branchSpec", "branch spec lines cannot map to a target")
		}
	}

	v.checkAuth(path+"/auth", root.Auth)
}

// checkBuildType checks one build type's declared settings and reports
// whether all of its templates exist
func (v *validator) checkBuildType(id string, bt *model.BuildType) bool {
	path := "buildTypes/" + id
	owner := v.n.Owners[id]
	v.checkID(path, id)

	switch bt.Type {
	case model.BuildTypeRegular, model.BuildTypeComposite:
	default:
		v.errorf(path+"/type", "unknown build type kind %q", bt.Type)
	}

	resolvable := true
	seen := make(map[string]bool)
	for i, tmplID := range bt.Templates {
		tmplPath := fmt.Sprintf("%s/templates/%d", path, i)
		if seen[tmplID] {
			v.errorf(tmplPath, "template %s is applied twice", tmplID)
		}
		seen[tmplID] = true

		if _, exists := v.n.Templates[tmplID]; !exists {
			v.errorf(tmplPath, "unknown template %s", tmplID)
			resolvable = false
			continue
		}
		if !v.visibleFrom(owner, v.n.Owners[tmplID]) {
			v.errorf(tmplPath, "template %s is not visible from project %s", tmplID, owner)
		}
	}

	v.checkBuildSettings(path, owner, &bt.BuildSettings)
	return resolvable
}

// visibleFrom reports whether an entity owned by ownerProject can be used
// from project, i.e. the owner is the project itself or one of its ancestors
func (v *validator) visibleFrom(project, ownerProject string) bool {
	for _, id := range v.n.Ancestors(project) {
		if id == ownerProject {
			return true
		}
	}
	return false
}

func (v *validator) checkBuildSettings(path, owner string, s *model.BuildSettings) {
	v.checkParams(path, s.Params, s.SecureParams)

	if s.Vcs != nil {
		for i, entry := range s.Vcs.Roots {
			entryPath := fmt.Sprintf("%s/vcs/roots/%d", path, i)
			v.checkVcsRootEntry(entryPath, owner, entry)
		}
	}

	for i := range s.Steps {
		v.checkStep(fmt.Sprintf("%s/steps/%d", path, i), &s.Steps[i])
	}

	for i := range s.Features {
		v.checkFeature(fmt.Sprintf("%s/features/%d", path, i), &s.Features[i])
	}

	for i, d := range s.Dependencies {
		depPath := fmt.Sprintf("%s/dependencies/%d", path, i)
		switch d.OnDependencyFailure {
		case model.FailToStart, model.AddProblem, model.Ignore, model.Cancel:
		default:
			v.errorf(depPath+"/onDependencyFailure", "unknown dependency failure action %q", d.OnDependencyFailure)
		}
		switch d.ReuseBuilds {
		case model.ReuseSuccessful, model.ReuseAny, model.ReuseNo:
		default:
			v.errorf(depPath+"/reuseBuilds", "unknown reuse strategy %q", d.ReuseBuilds)
		}
	}

	if fc := s.FailureConditions; fc != nil && fc.ExecutionTimeoutMin < 0 {
		v.errorf(path+"/failureConditions/executionTimeoutMin", "execution timeout must not be negative")
	}

	if s.ArtifactRules != "" {
		if _, err := rules.Parse(s.ArtifactRules); err != nil {
			v.errorf(path+"/artifactRules", "invalid artifact rules: %v", err)
		}
	}
}

func (v *validator) checkVcsRootEntry(path, owner string, entry model.VcsRootEntry) {
	rootOwner, exists := v.n.Owners[entry.Root]
	if _, isRoot := v.n.VcsRoots[entry.Root]; !exists || !isRoot {
		v.errorf(path, "unknown VCS root %s", entry.Root)
		return
	}
	if !entry.Absolute && !v.visibleFrom(owner, rootOwner) {
		v.errorf(path, "VCS root %s is not visible from project %s; mark the entry absolute to reference it", entry.Root, owner)
	}
	if entry.CheckoutRules != "" {
		if _, err := rules.Parse(entry.CheckoutRules); err != nil {
			v.errorf(path+"/checkoutRules", "invalid checkout rules: %v", err)
		}
	}
}

func (v *validator) checkStep(path string, step *model.Step) {
	if step.Type != model.StepTypeScript {
		v.errorf(path+"/type", "unsupported step type %q", step.Type)
	}
	if strings.TrimSpace(step.ScriptContent) == "" {
		v.errorf(path+"/scriptContent", "script step has no content")
	}
	switch step.DockerImagePlatform {
	case "", model.PlatformLinux, model.PlatformWindows:
	default:
		v.errorf(path+"/dockerImagePlatform", "unknown docker image platform %q", step.DockerImagePlatform)
	}
	if step.DockerImage == "" {
		if step.DockerImagePlatform != "" {
			v.errorf(path+"/dockerImagePlatform", "docker image platform set without a docker image")
		}
		if step.DockerRunParameters != "" {
			v.errorf(path+"/dockerRunParameters", "docker run parameters set without a docker image")
		}
	}
}

func (v *validator) checkFeature(path string, f *model.Feature) {
	payloads := 0
	for _, set := range []bool{f.CommitStatusPublisher != nil, f.XMLReport != nil, f.ParallelTests != nil} {
		if set {
			payloads++
		}
	}
	if payloads > 1 {
		v.errorf(path, "feature carries more than one payload")
	}

	switch f.Type {
	case model.FeatureCommitStatusPublisher:
		if f.CommitStatusPublisher == nil {
			v.errorf(path, "%s feature requires commitStatusPublisher settings", f.Type)
			return
		}
		v.checkCommitStatusPublisher(path+"/commitStatusPublisher", f.CommitStatusPublisher)
	case model.FeatureXMLReport:
		if f.XMLReport == nil {
			v.errorf(path, "%s feature requires xmlReport settings", f.Type)
			return
		}
		v.checkXMLReport(path+"/xmlReport", f.XMLReport)
	case model.FeatureParallelTests:
		if f.ParallelTests == nil {
			v.errorf(path, "%s feature requires parallelTests settings", f.Type)
			return
		}
		if f.ParallelTests.NumberOfBatches < 1 {
			v.errorf(path+"/parallelTests/numberOfBatches", "number of batches must be at least 1, got %d", f.ParallelTests.NumberOfBatches)
		}
	default:
		v.errorf(path+"/type", "unknown feature type %q", f.Type)
	}
}

func (v *validator) checkCommitStatusPublisher(path string, csp *model.CommitStatusPublisher) {
	if csp.VcsRootExtID == "" {
		v.errorf(path+"/vcsRootExtId", "commit status publisher needs a VCS root")
	} else if _, exists := v.n.VcsRoots[csp.VcsRootExtID]; !exists {
		v.errorf(path+"/vcsRootExtId", "unknown VCS root %s", csp.VcsRootExtID)
	}

	if csp.Publisher.Type != model.PublisherGitHub {
		v.errorf(path+"/publisher/type", "unsupported publisher %q", csp.Publisher.Type)
	}
	if u, err := url.Parse(csp.Publisher.GitHubURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		v.errorf(path+"/publisher/githubUrl", "invalid GitHub URL %q", csp.Publisher.GitHubURL)
	}
	if csp.Publisher.Auth == nil {
		v.errorf(path+"/publisher/auth", "publisher needs credentials")
		return
	}
	v.checkAuth(path+"/publisher/auth", csp.Publisher.Auth)
}

func (v *validator) checkXMLReport(path string, r *model.XMLReport) {
	known := false
	for _, rt := range model.ReportTypes {
		if r.ReportType == rt {
			known = true
			break
		}
	}
	if !known {
		v.errorf(path+"/reportType", "unknown report type %q", r.ReportType)
	}

	parsed, err := rules.Parse(r.Rules)
	switch {
	case err != nil:
		v.errorf(path+"/rules", "invalid report rules: %v", err)
	case len(parsed) == 0:
		v.errorf(path+"/rules", "report rules are empty")
	case parsed.HasTargets():
		v.errorf(path+"/rules", "report rules cannot map to a target")
	}
}
