package model

// RootProjectID is the id every settings tree gives its top-level project
const RootProjectID = "_Root"

// Settings is the top-level document of a configuration tree
type Settings struct {
	Version string  `yaml:"version" json:"version"` // DSL version of the CI host, e.g. 2022.10
	Project Project `yaml:"project" json:"project"`
}

// Project is a named container of VCS roots, build types, templates and sub-projects
type Project struct {
	ID           string               `yaml:"id,omitempty" json:"id,omitempty"`
	Name         string               `yaml:"name" json:"name"`
	Description  string               `yaml:"description,omitempty" json:"description,omitempty"`
	Params       map[string]string    `yaml:"params,omitempty" json:"params,omitempty"`
	SecureParams map[string]SecretRef `yaml:"secureParams,omitempty" json:"secureParams,omitempty"`
	VcsRoots     []VcsRoot            `yaml:"vcsRoots,omitempty" json:"vcsRoots,omitempty"`
	Templates    []Template           `yaml:"templates,omitempty" json:"templates,omitempty"`
	BuildTypes   []BuildType          `yaml:"buildTypes,omitempty" json:"buildTypes,omitempty"`
	SubProjects  []Project            `yaml:"subProjects,omitempty" json:"subProjects,omitempty"`

	// Include holds glob patterns of project files merged in as sub-projects.
	// The loader resolves and clears it.
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
}

// VcsRoot identifies a source repository and its checkout policy
type VcsRoot struct {
	ID             string         `yaml:"id,omitempty" json:"id,omitempty"`
	Name           string         `yaml:"name" json:"name"`
	Type           string         `yaml:"type,omitempty" json:"type,omitempty"` // git
	URL            string         `yaml:"url" json:"url"`
	Branch         string         `yaml:"branch,omitempty" json:"branch,omitempty"`
	BranchSpec     string         `yaml:"branchSpec,omitempty" json:"branchSpec,omitempty"`
	CheckoutPolicy CheckoutPolicy `yaml:"checkoutPolicy,omitempty" json:"checkoutPolicy,omitempty"`
	Auth           *AuthMethod    `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// CheckoutPolicy controls how agents obtain sources
type CheckoutPolicy string

const (
	CheckoutAuto         CheckoutPolicy = "AUTO"
	CheckoutUseMirrors   CheckoutPolicy = "USE_MIRRORS"
	CheckoutNoMirrors    CheckoutPolicy = "NO_MIRRORS"
	CheckoutShallowClone CheckoutPolicy = "SHALLOW_CLONE"
)

// AuthType selects how a VCS root or publisher authenticates
type AuthType string

const (
	AuthAnonymous     AuthType = "ANONYMOUS"
	AuthPassword      AuthType = "PASSWORD"
	AuthPersonalToken AuthType = "PERSONAL_TOKEN"
)

// AuthMethod holds credentials by reference only
type AuthMethod struct {
	Type     AuthType  `yaml:"type" json:"type"`
	UserName string    `yaml:"userName,omitempty" json:"userName,omitempty"`
	Password SecretRef `yaml:"password,omitempty" json:"password,omitempty"`
	Token    SecretRef `yaml:"token,omitempty" json:"token,omitempty"`
}

// NormalizedSettings is the indexed, defaulted form of a settings tree
type NormalizedSettings struct {
	Settings   *Settings
	Projects   map[string]*Project   // id -> project
	Parents    map[string]string     // project id -> parent project id ("" for root)
	BuildTypes map[string]*BuildType // id -> build type
	Templates  map[string]*Template  // id -> template
	VcsRoots   map[string]*VcsRoot   // id -> vcs root
	Owners     map[string]string     // build type, template or vcs root id -> owning project id
	RootID     string                // id of the top-level project, RootProjectID unless set explicitly

	// Declaration order, used wherever output must be deterministic
	BuildTypeOrder []string
	TemplateOrder  []string
	VcsRootOrder   []string
	ProjectOrder   []string
}

// Root returns the top-level project
func (n *NormalizedSettings) Root() *Project {
	return n.Projects[n.RootID]
}

// IsRoot reports whether projectID names the top-level project
func (n *NormalizedSettings) IsRoot(projectID string) bool {
	return projectID == n.RootID
}

// Ancestors returns the project chain from projectID up to the root, inclusive
func (n *NormalizedSettings) Ancestors(projectID string) []string {
	chain := make([]string, 0)
	seen := make(map[string]bool)
	for id := projectID; id != "" && !seen[id]; id = n.Parents[id] {
		seen[id] = true
		chain = append(chain, id)
	}
	return chain
}
