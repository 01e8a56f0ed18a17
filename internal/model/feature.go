package model

// FeatureType names a cross-cutting build feature
type FeatureType string

const (
	FeatureCommitStatusPublisher FeatureType = "COMMIT_STATUS_PUBLISHER"
	FeatureXMLReport             FeatureType = "XML_REPORT"
	FeatureParallelTests         FeatureType = "PARALLEL_TESTS"
)

// Feature attaches build-time behavior to a build type. Exactly one payload
// matching Type is set.
type Feature struct {
	ID                    string                 `yaml:"id,omitempty" json:"id,omitempty"`
	Type                  FeatureType            `yaml:"type" json:"type"`
	CommitStatusPublisher *CommitStatusPublisher `yaml:"commitStatusPublisher,omitempty" json:"commitStatusPublisher,omitempty"`
	XMLReport             *XMLReport             `yaml:"xmlReport,omitempty" json:"xmlReport,omitempty"`
	ParallelTests         *ParallelTests         `yaml:"parallelTests,omitempty" json:"parallelTests,omitempty"`
}

// CommitStatusPublisher reports build status back to a VCS host
type CommitStatusPublisher struct {
	VcsRootExtID string    `yaml:"vcsRootExtId" json:"vcsRootExtId"`
	Publisher    Publisher `yaml:"publisher" json:"publisher"`
}

// PublisherType names the VCS host receiving statuses
type PublisherType string

const PublisherGitHub PublisherType = "GITHUB"

// DefaultGitHubURL is the public GitHub API endpoint
const DefaultGitHubURL = "https://api.github.com"

// Publisher is the target of a commit status publisher
type Publisher struct {
	Type      PublisherType `yaml:"type" json:"type"`
	GitHubURL string        `yaml:"githubUrl,omitempty" json:"githubUrl,omitempty"`
	Auth      *AuthMethod   `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// ReportType is the format of ingested test reports
type ReportType string

const (
	ReportJUnit    ReportType = "JUNIT"
	ReportSurefire ReportType = "SUREFIRE"
	ReportAntJUnit ReportType = "ANTJUNIT"
	ReportNUnit    ReportType = "NUNIT"
	ReportTestNG   ReportType = "TESTNG"
	ReportCTest    ReportType = "CTEST"
)

// ReportTypes lists every supported ReportType
var ReportTypes = []ReportType{ReportJUnit, ReportSurefire, ReportAntJUnit, ReportNUnit, ReportTestNG, ReportCTest}

// XMLReport ingests test reports matched by rules
type XMLReport struct {
	ReportType ReportType `yaml:"reportType" json:"reportType"`
	Rules      string     `yaml:"rules" json:"rules"`
	Verbose    bool       `yaml:"verbose,omitempty" json:"verbose,omitempty"`
}

// ParallelTests splits tests into batches run on separate agents
type ParallelTests struct {
	Enabled         *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	NumberOfBatches int   `yaml:"numberOfBatches" json:"numberOfBatches"`
}

// IsEnabled defaults to true when Enabled is unset
func (p *ParallelTests) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}
