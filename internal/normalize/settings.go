package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sourceplane/pipecfg/internal/model"
)

// Problem is a structural defect that prevents indexing
type Problem struct {
	Path    string
	Message string
}

// Error collects every Problem found while normalizing
type Error struct {
	Problems []Problem
}

func (e *Error) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", e.Problems[0].Path, e.Problems[0].Message)
	}
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, fmt.Sprintf("  %s: %s", p.Path, p.Message))
	}
	return fmt.Sprintf("%d problems in settings:\n%s", len(e.Problems), strings.Join(lines, "\n"))
}

type normalizer struct {
	rootID   string
	out      *model.NormalizedSettings
	kinds    map[string]string // id -> kind of the entity that claimed it
	problems []Problem
}

// claim records id as taken by kind. Projects, VCS roots, templates and build
// types share one id namespace on the CI host.
func (n *normalizer) claim(path, id, kind string) bool {
	if other, taken := n.kinds[id]; taken {
		n.problem(path, "%s id %s is already used by a %s", kind, id, other)
		return false
	}
	n.kinds[id] = kind
	return true
}

func (n *normalizer) problem(path, format string, args ...interface{}) {
	n.problems = append(n.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

// NormalizeSettings fills defaults in place and indexes the tree by id
func NormalizeSettings(settings *model.Settings) (*model.NormalizedSettings, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	n := &normalizer{
		kinds: make(map[string]string),
		out: &model.NormalizedSettings{
			Settings:   settings,
			Projects:   make(map[string]*model.Project),
			Parents:    make(map[string]string),
			BuildTypes: make(map[string]*model.BuildType),
			Templates:  make(map[string]*model.Template),
			VcsRoots:   make(map[string]*model.VcsRoot),
			Owners:     make(map[string]string),
		},
	}

	root := &settings.Project
	if root.ID == "" {
		root.ID = model.RootProjectID
	}
	n.rootID = root.ID
	n.out.RootID = root.ID
	n.project(root, "")

	if len(n.problems) > 0 {
		return nil, &Error{Problems: n.problems}
	}
	return n.out, nil
}

func (n *normalizer) project(p *model.Project, parentID string) {
	if p.Name == "" {
		n.problem("projects/"+p.ID, "project must have a name")
	}
	if p.ID == "" {
		p.ID = n.childPrefix(parentID) + CamelCase(p.Name)
	}
	path := "projects/" + p.ID

	if _, exists := n.out.Projects[p.ID]; exists {
		n.problem(path, "duplicate project id %s", p.ID)
	} else if n.claim(path, p.ID, "project") {
		n.out.Projects[p.ID] = p
		n.out.Parents[p.ID] = parentID
		n.out.ProjectOrder = append(n.out.ProjectOrder, p.ID)
	}

	prefix := n.childPrefix(p.ID)

	for i := range p.VcsRoots {
		root := &p.VcsRoots[i]
		n.vcsRoot(root, prefix)
		if root.ID == "" {
			continue
		}
		if _, exists := n.out.VcsRoots[root.ID]; exists {
			n.problem("vcsRoots/"+root.ID, "duplicate VCS root id %s", root.ID)
			continue
		}
		if !n.claim("vcsRoots/"+root.ID, root.ID, "VCS root") {
			continue
		}
		n.out.VcsRoots[root.ID] = root
		n.out.Owners[root.ID] = p.ID
		n.out.VcsRootOrder = append(n.out.VcsRootOrder, root.ID)
	}

	for i := range p.Templates {
		tmpl := &p.Templates[i]
		if tmpl.Name == "" {
			n.problem(fmt.Sprintf("%s/templates/%d", path, i), "template must have a name")
			continue
		}
		if tmpl.ID == "" {
			tmpl.ID = prefix + CamelCase(tmpl.Name)
		}
		buildSettings(&tmpl.BuildSettings)
		if _, exists := n.out.Templates[tmpl.ID]; exists {
			n.problem("templates/"+tmpl.ID, "duplicate template id %s", tmpl.ID)
			continue
		}
		if !n.claim("templates/"+tmpl.ID, tmpl.ID, "template") {
			continue
		}
		n.out.Templates[tmpl.ID] = tmpl
		n.out.Owners[tmpl.ID] = p.ID
		n.out.TemplateOrder = append(n.out.TemplateOrder, tmpl.ID)
	}

	for i := range p.BuildTypes {
		bt := &p.BuildTypes[i]
		if bt.Name == "" {
			n.problem(fmt.Sprintf("%s/buildTypes/%d", path, i), "build type must have a name")
			continue
		}
		if bt.ID == "" {
			bt.ID = prefix + CamelCase(bt.Name)
		}
		if bt.Type == "" {
			bt.Type = model.BuildTypeRegular
		}
		bt.Type = model.BuildTypeKind(strings.ToUpper(string(bt.Type)))
		buildSettings(&bt.BuildSettings)
		if _, exists := n.out.BuildTypes[bt.ID]; exists {
			n.problem("buildTypes/"+bt.ID, "duplicate build type id %s", bt.ID)
			continue
		}
		if !n.claim("buildTypes/"+bt.ID, bt.ID, "build type") {
			continue
		}
		n.out.BuildTypes[bt.ID] = bt
		n.out.Owners[bt.ID] = p.ID
		n.out.BuildTypeOrder = append(n.out.BuildTypeOrder, bt.ID)
	}

	for i := range p.SubProjects {
		n.project(&p.SubProjects[i], p.ID)
	}
}

func (n *normalizer) vcsRoot(root *model.VcsRoot, prefix string) {
	if root.URL == "" {
		n.problem(fmt.Sprintf("vcsRoots/%s", root.ID), "VCS root %q must have a url", root.Name)
		return
	}
	if root.ID == "" {
		root.ID = prefix + CamelCase(root.URL)
	}
	if root.Name == "" {
		root.Name = root.URL
	}
	if root.Type == "" {
		root.Type = "git"
	}
	if root.CheckoutPolicy == "" {
		root.CheckoutPolicy = model.CheckoutAuto
	}
	root.CheckoutPolicy = model.CheckoutPolicy(strings.ToUpper(string(root.CheckoutPolicy)))
	authMethod(root.Auth)
}

func authMethod(a *model.AuthMethod) {
	if a == nil {
		return
	}
	if a.Type == "" {
		a.Type = model.AuthAnonymous
	}
	a.Type = model.AuthType(strings.ToUpper(string(a.Type)))
}

func buildSettings(s *model.BuildSettings) {
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Type == "" {
			step.Type = model.StepTypeScript
		}
		step.DockerImagePlatform = model.ImagePlatform(strings.ToUpper(string(step.DockerImagePlatform)))
	}

	for i := range s.Features {
		f := &s.Features[i]
		f.Type = model.FeatureType(strings.ToUpper(string(f.Type)))
		if csp := f.CommitStatusPublisher; csp != nil {
			if csp.Publisher.Type == "" {
				csp.Publisher.Type = model.PublisherGitHub
			}
			csp.Publisher.Type = model.PublisherType(strings.ToUpper(string(csp.Publisher.Type)))
			if csp.Publisher.Type == model.PublisherGitHub && csp.Publisher.GitHubURL == "" {
				csp.Publisher.GitHubURL = model.DefaultGitHubURL
			}
			authMethod(csp.Publisher.Auth)
		}
		if r := f.XMLReport; r != nil {
			r.ReportType = model.ReportType(strings.ToUpper(string(r.ReportType)))
		}
	}

	for i := range s.Dependencies {
		d := &s.Dependencies[i]
		if d.OnDependencyFailure == "" {
			d.OnDependencyFailure = model.FailToStart
		}
		if d.ReuseBuilds == "" {
			d.ReuseBuilds = model.ReuseSuccessful
		}
		d.OnDependencyFailure = model.DependencyFailure(strings.ToUpper(string(d.OnDependencyFailure)))
		d.ReuseBuilds = model.ReuseBuildsStrategy(strings.ToUpper(string(d.ReuseBuilds)))
	}
}

// childPrefix is the id prefix for entities owned by a project. Entities of
// the root project are not prefixed, whatever its id.
func (n *normalizer) childPrefix(projectID string) string {
	if projectID == "" || projectID == n.rootID {
		return ""
	}
	return projectID + "_"
}

// CamelCase derives an id from free text: each alphanumeric word is
// capitalized and the rest dropped, e.g. "Hello world #1" -> "HelloWorld1".
func CamelCase(s string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	}) {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
