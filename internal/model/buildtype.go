package model

// BuildTypeKind distinguishes plain build types from aggregating ones
type BuildTypeKind string

const (
	BuildTypeRegular   BuildTypeKind = "REGULAR"
	BuildTypeComposite BuildTypeKind = "COMPOSITE" // no steps, only snapshot dependencies
)

// BuildSettings is the part shared by build types and templates
type BuildSettings struct {
	Name              string               `yaml:"name" json:"name"`
	Description       string               `yaml:"description,omitempty" json:"description,omitempty"`
	Params            map[string]string    `yaml:"params,omitempty" json:"params,omitempty"`
	SecureParams      map[string]SecretRef `yaml:"secureParams,omitempty" json:"secureParams,omitempty"`
	Vcs               *VcsSettings         `yaml:"vcs,omitempty" json:"vcs,omitempty"`
	Steps             []Step               `yaml:"steps,omitempty" json:"steps,omitempty"`
	Features          []Feature            `yaml:"features,omitempty" json:"features,omitempty"`
	Dependencies      []SnapshotDependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	FailureConditions *FailureConditions   `yaml:"failureConditions,omitempty" json:"failureConditions,omitempty"`
	ArtifactRules     string               `yaml:"artifactRules,omitempty" json:"artifactRules,omitempty"`
	DisabledSettings  []string             `yaml:"disabledSettings,omitempty" json:"disabledSettings,omitempty"` // ids of inherited steps/features
}

// BuildType is a named, independently triggerable unit of CI work
type BuildType struct {
	ID            string        `yaml:"id,omitempty" json:"id,omitempty"`
	Type          BuildTypeKind `yaml:"type,omitempty" json:"type,omitempty"`
	Templates     []string      `yaml:"templates,omitempty" json:"templates,omitempty"` // applied in order
	BuildSettings `yaml:",inline"`
}

// Template is a reusable build type skeleton, inherited by reference
type Template struct {
	ID            string `yaml:"id,omitempty" json:"id,omitempty"`
	BuildSettings `yaml:",inline"`
}

// IsComposite reports whether the build type only aggregates dependencies
func (bt *BuildType) IsComposite() bool {
	return bt.Type == BuildTypeComposite
}

// VcsSettings binds VCS roots to a build type or template
type VcsSettings struct {
	Roots                   []VcsRootEntry `yaml:"roots,omitempty" json:"roots,omitempty"`
	ShowDependenciesChanges bool           `yaml:"showDependenciesChanges,omitempty" json:"showDependenciesChanges,omitempty"`
}

// VcsRootEntry references a VCS root by id
type VcsRootEntry struct {
	Root          string `yaml:"root" json:"root"`
	Absolute      bool   `yaml:"absolute,omitempty" json:"absolute,omitempty"` // resolve anywhere in the tree
	CheckoutRules string `yaml:"checkoutRules,omitempty" json:"checkoutRules,omitempty"`
}

// Step is an ordered unit of execution within a build type
type Step struct {
	ID                  string        `yaml:"id,omitempty" json:"id,omitempty"`
	Name                string        `yaml:"name,omitempty" json:"name,omitempty"`
	Type                string        `yaml:"type,omitempty" json:"type,omitempty"` // script
	ScriptContent       string        `yaml:"scriptContent" json:"scriptContent"`
	WorkingDir          string        `yaml:"workingDir,omitempty" json:"workingDir,omitempty"`
	DockerImage         string        `yaml:"dockerImage,omitempty" json:"dockerImage,omitempty"`
	DockerImagePlatform ImagePlatform `yaml:"dockerImagePlatform,omitempty" json:"dockerImagePlatform,omitempty"`
	DockerRunParameters string        `yaml:"dockerRunParameters,omitempty" json:"dockerRunParameters,omitempty"`
}

// ImagePlatform is the OS of a step's container image
type ImagePlatform string

const (
	PlatformLinux   ImagePlatform = "LINUX"
	PlatformWindows ImagePlatform = "WINDOWS"
)

// StepTypeScript is the only supported step runner
const StepTypeScript = "script"

// FailureConditions configure when the CI host fails a build
type FailureConditions struct {
	ExecutionTimeoutMin int   `yaml:"executionTimeoutMin,omitempty" json:"executionTimeoutMin,omitempty"`
	NonZeroExitCode     *bool `yaml:"nonZeroExitCode,omitempty" json:"nonZeroExitCode,omitempty"`
}

// SnapshotDependency is a same-changeset edge to a prerequisite build type
type SnapshotDependency struct {
	BuildType           string              `yaml:"buildType" json:"buildType"`
	OnDependencyFailure DependencyFailure   `yaml:"onDependencyFailure,omitempty" json:"onDependencyFailure,omitempty"`
	ReuseBuilds         ReuseBuildsStrategy `yaml:"reuseBuilds,omitempty" json:"reuseBuilds,omitempty"`
}

// DependencyFailure is the action taken when a prerequisite fails
type DependencyFailure string

const (
	FailToStart DependencyFailure = "FAIL_TO_START"
	AddProblem  DependencyFailure = "ADD_PROBLEM"
	Ignore      DependencyFailure = "IGNORE"
	Cancel      DependencyFailure = "CANCEL"
)

// ReuseBuildsStrategy controls whether suitable earlier builds satisfy a dependency
type ReuseBuildsStrategy string

const (
	ReuseSuccessful ReuseBuildsStrategy = "SUCCESSFUL"
	ReuseAny        ReuseBuildsStrategy = "ANY"
	ReuseNo         ReuseBuildsStrategy = "NO"
)
