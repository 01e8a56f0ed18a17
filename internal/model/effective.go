package model

// EffectiveBuildType is a build type with all its templates applied
type EffectiveBuildType struct {
	ID                string               `yaml:"id" json:"id"`
	Name              string               `yaml:"name" json:"name"`
	Project           string               `yaml:"project" json:"project"`
	Type              BuildTypeKind        `yaml:"type" json:"type"`
	Templates         []string             `yaml:"templates,omitempty" json:"templates,omitempty"`
	Params            map[string]string    `yaml:"params,omitempty" json:"params,omitempty"`
	SecureParams      map[string]SecretRef `yaml:"secureParams,omitempty" json:"secureParams,omitempty"`
	VcsRoots          []VcsRootEntry       `yaml:"vcsRoots,omitempty" json:"vcsRoots,omitempty"`
	VcsRootSource     string               `yaml:"vcsRootSource,omitempty" json:"vcsRootSource,omitempty"` // build type or template id the roots came from
	Steps             []Step               `yaml:"steps,omitempty" json:"steps,omitempty"`
	Features          []Feature            `yaml:"features,omitempty" json:"features,omitempty"`
	Dependencies      []SnapshotDependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	FailureConditions *FailureConditions   `yaml:"failureConditions,omitempty" json:"failureConditions,omitempty"`
	ArtifactRules     string               `yaml:"artifactRules,omitempty" json:"artifactRules,omitempty"`
}

// EffectiveSettings is the flattened export of a settings tree
type EffectiveSettings struct {
	Version    string               `yaml:"version" json:"version"`
	BuildTypes []EffectiveBuildType `yaml:"buildTypes" json:"buildTypes"`
}
