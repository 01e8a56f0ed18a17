// Package hclconf reads settings written in HCL. Block labels carry explicit
// ids; names are attributes.
package hclconf

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/sourceplane/pipecfg/internal/ctxlog"
	"github.com/sourceplane/pipecfg/internal/model"
)

// hclSettingsFile represents the top-level structure of a settings file for decoding.
type hclSettingsFile struct {
	Version string         `hcl:"version"`
	Project hclProjectBody `hcl:"project,block"`
}

// hclProjectBody is shared by the unlabeled root project and labeled sub-projects
type hclProjectBody struct {
	Name         string            `hcl:"name"`
	Description  string            `hcl:"description,optional"`
	Params       map[string]string `hcl:"params,optional"`
	SecureParams map[string]string `hcl:"secure_params,optional"`
	VcsRoots     []hclVcsRoot      `hcl:"vcs_root,block"`
	Templates    []hclTemplate     `hcl:"template,block"`
	BuildTypes   []hclBuildType    `hcl:"build_type,block"`
	SubProjects  []hclProject      `hcl:"sub_project,block"`
}

type hclProject struct {
	ID   string         `hcl:"id,label"`
	Body hclProjectBody `hcl:",remain"`
}

type hclVcsRoot struct {
	ID             string   `hcl:"id,label"`
	Name           string   `hcl:"name,optional"`
	Type           string   `hcl:"type,optional"`
	URL            string   `hcl:"url"`
	Branch         string   `hcl:"branch,optional"`
	BranchSpec     string   `hcl:"branch_spec,optional"`
	CheckoutPolicy string   `hcl:"checkout_policy,optional"`
	Auth           *hclAuth `hcl:"auth,block"`
}

type hclAuth struct {
	Type     string `hcl:"type"`
	UserName string `hcl:"user_name,optional"`
	Password string `hcl:"password,optional"`
	Token    string `hcl:"token,optional"`
}

type hclBuildSettings struct {
	Name                   string                     `hcl:"name"`
	Description            string                     `hcl:"description,optional"`
	Params                 map[string]string          `hcl:"params,optional"`
	SecureParams           map[string]string          `hcl:"secure_params,optional"`
	Vcs                    *hclVcs                    `hcl:"vcs,block"`
	Steps                  []hclStep                  `hcl:"step,block"`
	CommitStatusPublishers []hclCommitStatusPublisher `hcl:"commit_status_publisher,block"`
	XMLReports             []hclXMLReport             `hcl:"xml_report,block"`
	ParallelTests          []hclParallelTests         `hcl:"parallel_tests,block"`
	Snapshots              []hclSnapshot              `hcl:"snapshot,block"`
	FailureConditions      *hclFailureConditions      `hcl:"failure_conditions,block"`
	ArtifactRules          string                     `hcl:"artifact_rules,optional"`
	DisabledSettings       []string                   `hcl:"disabled_settings,optional"`
}

type hclTemplate struct {
	ID       string           `hcl:"id,label"`
	Settings hclBuildSettings `hcl:",remain"`
}

type hclBuildType struct {
	ID        string           `hcl:"id,label"`
	Type      string           `hcl:"type,optional"`
	Templates []string         `hcl:"templates,optional"`
	Settings  hclBuildSettings `hcl:",remain"`
}

type hclVcs struct {
	Roots                   []hclVcsRootEntry `hcl:"root,block"`
	ShowDependenciesChanges bool              `hcl:"show_dependencies_changes,optional"`
}

type hclVcsRootEntry struct {
	Root          string `hcl:"root,label"`
	Absolute      bool   `hcl:"absolute,optional"`
	CheckoutRules string `hcl:"checkout_rules,optional"`
}

type hclStep struct {
	ID                  string `hcl:"id,optional"`
	Name                string `hcl:"name,optional"`
	ScriptContent       string `hcl:"script_content"`
	WorkingDir          string `hcl:"working_dir,optional"`
	DockerImage         string `hcl:"docker_image,optional"`
	DockerImagePlatform string `hcl:"docker_image_platform,optional"`
	DockerRunParameters string `hcl:"docker_run_parameters,optional"`
}

type hclCommitStatusPublisher struct {
	ID           string       `hcl:"id,optional"`
	VcsRootExtID string       `hcl:"vcs_root_ext_id"`
	Publisher    hclPublisher `hcl:"publisher,block"`
	DeclRange    hcl.Range    `hcl:",def_range"`
}

type hclPublisher struct {
	Type      string   `hcl:"type"`
	GitHubURL string   `hcl:"github_url,optional"`
	Auth      *hclAuth `hcl:"auth,block"`
}

type hclXMLReport struct {
	ID         string    `hcl:"id,optional"`
	ReportType string    `hcl:"report_type"`
	Rules      string    `hcl:"rules"`
	Verbose    bool      `hcl:"verbose,optional"`
	DeclRange  hcl.Range `hcl:",def_range"`
}

type hclParallelTests struct {
	ID              string    `hcl:"id,optional"`
	Enabled         *bool     `hcl:"enabled,optional"`
	NumberOfBatches int       `hcl:"number_of_batches"`
	DeclRange       hcl.Range `hcl:",def_range"`
}

type hclSnapshot struct {
	BuildType           string `hcl:"build_type,label"`
	OnDependencyFailure string `hcl:"on_dependency_failure,optional"`
	ReuseBuilds         string `hcl:"reuse_builds,optional"`
}

type hclFailureConditions struct {
	ExecutionTimeoutMin int   `hcl:"execution_timeout_min,optional"`
	NonZeroExitCode     *bool `hcl:"non_zero_exit_code,optional"`
}

// LoadFile parses a single HCL settings file
func LoadFile(ctx context.Context, filePath string) (*model.Settings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading HCL settings", "path", filePath)

	hclFile, diags := hclparse.NewParser().ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}
	return decode(hclFile, filePath)
}

// Parse decodes HCL settings held in memory; filename is used in diagnostics
func Parse(src []byte, filename string) (*model.Settings, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(hclFile, filename)
}

func decode(hclFile *hcl.File, filePath string) (*model.Settings, error) {
	var parsed hclSettingsFile
	diags := gohcl.DecodeBody(hclFile.Body, newEvalContext(), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}

	return &model.Settings{
		Version: parsed.Version,
		Project: parsed.Project.toModel(""),
	}, nil
}

func (p hclProjectBody) toModel(id string) model.Project {
	project := model.Project{
		ID:           id,
		Name:         p.Name,
		Description:  p.Description,
		Params:       p.Params,
		SecureParams: toSecretMap(p.SecureParams),
	}
	for _, r := range p.VcsRoots {
		project.VcsRoots = append(project.VcsRoots, model.VcsRoot{
			ID:             r.ID,
			Name:           r.Name,
			Type:           r.Type,
			URL:            r.URL,
			Branch:         r.Branch,
			BranchSpec:     r.BranchSpec,
			CheckoutPolicy: model.CheckoutPolicy(r.CheckoutPolicy),
			Auth:           r.Auth.toModel(),
		})
	}
	for _, t := range p.Templates {
		project.Templates = append(project.Templates, model.Template{
			ID:            t.ID,
			BuildSettings: t.Settings.toModel(),
		})
	}
	for _, bt := range p.BuildTypes {
		project.BuildTypes = append(project.BuildTypes, model.BuildType{
			ID:            bt.ID,
			Type:          model.BuildTypeKind(bt.Type),
			Templates:     bt.Templates,
			BuildSettings: bt.Settings.toModel(),
		})
	}
	for _, sub := range p.SubProjects {
		project.SubProjects = append(project.SubProjects, sub.Body.toModel(sub.ID))
	}
	return project
}

func (a *hclAuth) toModel() *model.AuthMethod {
	if a == nil {
		return nil
	}
	return &model.AuthMethod{
		Type:     model.AuthType(a.Type),
		UserName: a.UserName,
		Password: model.SecretRef(a.Password),
		Token:    model.SecretRef(a.Token),
	}
}

func (s hclBuildSettings) toModel() model.BuildSettings {
	settings := model.BuildSettings{
		Name:             s.Name,
		Description:      s.Description,
		Params:           s.Params,
		SecureParams:     toSecretMap(s.SecureParams),
		ArtifactRules:    s.ArtifactRules,
		DisabledSettings: s.DisabledSettings,
	}

	if s.Vcs != nil {
		vcs := &model.VcsSettings{ShowDependenciesChanges: s.Vcs.ShowDependenciesChanges}
		for _, r := range s.Vcs.Roots {
			vcs.Roots = append(vcs.Roots, model.VcsRootEntry{
				Root:          r.Root,
				Absolute:      r.Absolute,
				CheckoutRules: r.CheckoutRules,
			})
		}
		settings.Vcs = vcs
	}

	for _, st := range s.Steps {
		settings.Steps = append(settings.Steps, model.Step{
			ID:                  st.ID,
			Name:                st.Name,
			Type:                model.StepTypeScript,
			ScriptContent:       st.ScriptContent,
			WorkingDir:          st.WorkingDir,
			DockerImage:         st.DockerImage,
			DockerImagePlatform: model.ImagePlatform(st.DockerImagePlatform),
			DockerRunParameters: st.DockerRunParameters,
		})
	}

	// Feature blocks are typed by name; their source position restores the
	// declaration order across kinds.
	type declared struct {
		at      hcl.Pos
		feature model.Feature
	}
	var features []declared
	for _, f := range s.CommitStatusPublishers {
		features = append(features, declared{f.DeclRange.Start, model.Feature{
			ID:   f.ID,
			Type: model.FeatureCommitStatusPublisher,
			CommitStatusPublisher: &model.CommitStatusPublisher{
				VcsRootExtID: f.VcsRootExtID,
				Publisher: model.Publisher{
					Type:      model.PublisherType(f.Publisher.Type),
					GitHubURL: f.Publisher.GitHubURL,
					Auth:      f.Publisher.Auth.toModel(),
				},
			},
		}})
	}
	for _, f := range s.XMLReports {
		features = append(features, declared{f.DeclRange.Start, model.Feature{
			ID:   f.ID,
			Type: model.FeatureXMLReport,
			XMLReport: &model.XMLReport{
				ReportType: model.ReportType(f.ReportType),
				Rules:      f.Rules,
				Verbose:    f.Verbose,
			},
		}})
	}
	for _, f := range s.ParallelTests {
		features = append(features, declared{f.DeclRange.Start, model.Feature{
			ID:   f.ID,
			Type: model.FeatureParallelTests,
			ParallelTests: &model.ParallelTests{
				Enabled:         f.Enabled,
				NumberOfBatches: f.NumberOfBatches,
			},
		}})
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].at.Byte < features[j].at.Byte
	})
	for _, f := range features {
		settings.Features = append(settings.Features, f.feature)
	}

	for _, d := range s.Snapshots {
		settings.Dependencies = append(settings.Dependencies, model.SnapshotDependency{
			BuildType:           d.BuildType,
			OnDependencyFailure: model.DependencyFailure(d.OnDependencyFailure),
			ReuseBuilds:         model.ReuseBuildsStrategy(d.ReuseBuilds),
		})
	}

	if s.FailureConditions != nil {
		settings.FailureConditions = &model.FailureConditions{
			ExecutionTimeoutMin: s.FailureConditions.ExecutionTimeoutMin,
			NonZeroExitCode:     s.FailureConditions.NonZeroExitCode,
		}
	}

	return settings
}

func toSecretMap(in map[string]string) map[string]model.SecretRef {
	if in == nil {
		return nil
	}
	out := make(map[string]model.SecretRef, len(in))
	for k, v := range in {
		out[k] = model.SecretRef(v)
	}
	return out
}
