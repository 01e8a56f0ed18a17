package starlarkconf

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sourceplane/pipecfg/internal/model"
	"go.starlark.net/starlark"
)

const collectorKey = "pipecfg.settings"

// collector receives the single settings() call of a script
type collector struct {
	settings *model.Settings
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"settings":                starlark.NewBuiltin("settings", settingsImpl),
		"project":                 starlark.NewBuiltin("project", projectImpl),
		"git_vcs_root":            starlark.NewBuiltin("git_vcs_root", gitVcsRootImpl),
		"password":                starlark.NewBuiltin("password", passwordImpl),
		"personal_token":          starlark.NewBuiltin("personal_token", personalTokenImpl),
		"anonymous":               starlark.NewBuiltin("anonymous", anonymousImpl),
		"build_type":              starlark.NewBuiltin("build_type", buildTypeImpl),
		"template":                starlark.NewBuiltin("template", templateImpl),
		"script":                  starlark.NewBuiltin("script", scriptImpl),
		"commit_status_publisher": starlark.NewBuiltin("commit_status_publisher", commitStatusPublisherImpl),
		"xml_report":              starlark.NewBuiltin("xml_report", xmlReportImpl),
		"parallel_tests":          starlark.NewBuiltin("parallel_tests", parallelTestsImpl),
		"snapshot":                starlark.NewBuiltin("snapshot", snapshotImpl),
		"vcs_root_entry":          starlark.NewBuiltin("vcs_root_entry", vcsRootEntryImpl),
		"failure_conditions":      starlark.NewBuiltin("failure_conditions", failureConditionsImpl),
		"credential":              starlark.NewBuiltin("credential", credentialImpl),
		"env_secret":              secretBuiltin("env_secret", model.SchemeEnv),
		"redis_secret":            secretBuiltin("redis_secret", model.SchemeRedis),
		"gcp_secret":              secretBuiltin("gcp_secret", model.SchemeGCPSecret),
	}
}

func settingsImpl(th *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var version string
	var proj starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "version", &version, "project", &proj); err != nil {
		return nil, err
	}
	n, ok := proj.(*node)
	if !ok {
		return nil, fmt.Errorf("%s: project: got %s", b.Name(), proj.Type())
	}
	p, ok := n.value.(model.Project)
	if !ok {
		return nil, fmt.Errorf("%s: project: got %s", b.Name(), n.kind)
	}

	c, _ := th.Local(collectorKey).(*collector)
	if c == nil {
		return nil, fmt.Errorf("%s: not available in this context", b.Name())
	}
	if c.settings != nil {
		return nil, fmt.Errorf("%s: called more than once", b.Name())
	}
	c.settings = &model.Settings{Version: version, Project: p}
	return starlark.None, nil
}

func projectImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var (
		name, id, description           string
		params, secureParams            *starlark.Dict
		vcsRoots, templates, buildTypes *starlark.List
		subProjects                     *starlark.List
	)
	if err := starlark.UnpackArgs(fn, args, kwargs,
		"name", &name,
		"id?", &id,
		"description?", &description,
		"params?", &params,
		"secure_params?", &secureParams,
		"vcs_roots?", &vcsRoots,
		"templates?", &templates,
		"build_types?", &buildTypes,
		"sub_projects?", &subProjects,
	); err != nil {
		return nil, err
	}

	p := model.Project{ID: id, Name: name, Description: description}
	var err error
	if p.Params, err = toStringMap(fn, "params", params); err != nil {
		return nil, err
	}
	if p.SecureParams, err = toSecretMap(fn, "secure_params", secureParams); err != nil {
		return nil, err
	}
	if p.VcsRoots, err = nodesOf[model.VcsRoot](fn, "vcs_roots", vcsRoots); err != nil {
		return nil, err
	}
	if p.Templates, err = nodesOf[model.Template](fn, "templates", templates); err != nil {
		return nil, err
	}
	if p.BuildTypes, err = nodesOf[model.BuildType](fn, "build_types", buildTypes); err != nil {
		return nil, err
	}
	if p.SubProjects, err = nodesOf[model.Project](fn, "sub_projects", subProjects); err != nil {
		return nil, err
	}
	return &node{kind: "project", value: p}, nil
}

func gitVcsRootImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, url, id, branch, branchSpec, checkoutPolicy string
	var auth starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"url", &url,
		"id?", &id,
		"branch?", &branch,
		"branch_spec?", &branchSpec,
		"checkout_policy?", &checkoutPolicy,
		"auth?", &auth,
	); err != nil {
		return nil, err
	}

	root := model.VcsRoot{
		ID:             id,
		Name:           name,
		Type:           "git",
		URL:            url,
		Branch:         branch,
		BranchSpec:     branchSpec,
		CheckoutPolicy: model.CheckoutPolicy(checkoutPolicy),
	}
	var err error
	if root.Auth, err = authOf(b.Name(), auth); err != nil {
		return nil, err
	}
	return &node{kind: "vcs_root", value: root}, nil
}

func authOf(fn string, v starlark.Value) (*model.AuthMethod, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	n, ok := v.(*node)
	if !ok {
		return nil, fmt.Errorf("%s: auth: got %s", fn, v.Type())
	}
	auth, ok := n.value.(*model.AuthMethod)
	if !ok {
		return nil, fmt.Errorf("%s: auth: got %s", fn, n.kind)
	}
	return auth, nil
}

func passwordImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var userName, password string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "password", &password, "user_name?", &userName); err != nil {
		return nil, err
	}
	return &node{kind: "auth", value: &model.AuthMethod{
		Type:     model.AuthPassword,
		UserName: userName,
		Password: model.SecretRef(password),
	}}, nil
}

func personalTokenImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var token string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "token", &token); err != nil {
		return nil, err
	}
	return &node{kind: "auth", value: &model.AuthMethod{
		Type:  model.AuthPersonalToken,
		Token: model.SecretRef(token),
	}}, nil
}

func anonymousImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return &node{kind: "auth", value: &model.AuthMethod{Type: model.AuthAnonymous}}, nil
}

// buildSettingsArgs are the keyword arguments shared by build_type and template
type buildSettingsArgs struct {
	name, description       string
	params, secureParams    *starlark.Dict
	vcs                     *starlark.List
	showDependenciesChanges bool
	steps, features         *starlark.List
	dependencies            *starlark.List
	failureConditions       starlark.Value
	artifactRules           string
	disabledSettings        *starlark.List
}

func (a *buildSettingsArgs) pairs() []interface{} {
	return []interface{}{
		"name", &a.name,
		"description?", &a.description,
		"params?", &a.params,
		"secure_params?", &a.secureParams,
		"vcs?", &a.vcs,
		"show_dependencies_changes?", &a.showDependenciesChanges,
		"steps?", &a.steps,
		"features?", &a.features,
		"dependencies?", &a.dependencies,
		"failure_conditions?", &a.failureConditions,
		"artifact_rules?", &a.artifactRules,
		"disabled_settings?", &a.disabledSettings,
	}
}

func (a *buildSettingsArgs) toModel(fn string) (model.BuildSettings, error) {
	s := model.BuildSettings{
		Name:          a.name,
		Description:   a.description,
		ArtifactRules: a.artifactRules,
	}
	var err error
	if s.Params, err = toStringMap(fn, "params", a.params); err != nil {
		return s, err
	}
	if s.SecureParams, err = toSecretMap(fn, "secure_params", a.secureParams); err != nil {
		return s, err
	}

	roots, err := vcsEntriesOf(fn, a.vcs)
	if err != nil {
		return s, err
	}
	if len(roots) > 0 || a.showDependenciesChanges {
		s.Vcs = &model.VcsSettings{Roots: roots, ShowDependenciesChanges: a.showDependenciesChanges}
	}

	if s.Steps, err = nodesOf[model.Step](fn, "steps", a.steps); err != nil {
		return s, err
	}
	if s.Features, err = nodesOf[model.Feature](fn, "features", a.features); err != nil {
		return s, err
	}
	if s.Dependencies, err = nodesOf[model.SnapshotDependency](fn, "dependencies", a.dependencies); err != nil {
		return s, err
	}

	if a.failureConditions != nil && a.failureConditions != starlark.None {
		n, ok := a.failureConditions.(*node)
		if !ok {
			return s, fmt.Errorf("%s: failure_conditions: got %s", fn, a.failureConditions.Type())
		}
		fc, ok := n.value.(*model.FailureConditions)
		if !ok {
			return s, fmt.Errorf("%s: failure_conditions: got %s", fn, n.kind)
		}
		s.FailureConditions = fc
	}

	if a.disabledSettings != nil {
		for i := 0; i < a.disabledSettings.Len(); i++ {
			id, ok := a.disabledSettings.Index(i).(starlark.String)
			if !ok {
				return s, fmt.Errorf("%s: disabled_settings[%d]: got %s, want string", fn, i, a.disabledSettings.Index(i).Type())
			}
			s.DisabledSettings = append(s.DisabledSettings, id.GoString())
		}
	}
	return s, nil
}

// vcsEntriesOf accepts vcs_root_entry nodes, git_vcs_root nodes with an id, or id strings
func vcsEntriesOf(fn string, l *starlark.List) ([]model.VcsRootEntry, error) {
	if l == nil {
		return nil, nil
	}
	var out []model.VcsRootEntry
	for i := 0; i < l.Len(); i++ {
		if n, ok := l.Index(i).(*node); ok {
			if entry, ok := n.value.(model.VcsRootEntry); ok {
				out = append(out, entry)
				continue
			}
		}
		id, err := idOf(fn, fmt.Sprintf("vcs[%d]", i), l.Index(i))
		if err != nil {
			return nil, err
		}
		out = append(out, model.VcsRootEntry{Root: id})
	}
	return out, nil
}

func buildTypeImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var common buildSettingsArgs
	var id, kind string
	var templates *starlark.List
	pairs := append(common.pairs(), "id?", &id, "type?", &kind, "templates?", &templates)
	if err := starlark.UnpackArgs(fn, args, kwargs, pairs...); err != nil {
		return nil, err
	}

	settings, err := common.toModel(fn)
	if err != nil {
		return nil, err
	}
	ids, err := idsOf(fn, "templates", templates)
	if err != nil {
		return nil, err
	}
	return &node{kind: "build_type", value: model.BuildType{
		ID:            id,
		Type:          model.BuildTypeKind(kind),
		Templates:     ids,
		BuildSettings: settings,
	}}, nil
}

func templateImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var common buildSettingsArgs
	var id string
	pairs := append(common.pairs(), "id?", &id)
	if err := starlark.UnpackArgs(fn, args, kwargs, pairs...); err != nil {
		return nil, err
	}

	settings, err := common.toModel(fn)
	if err != nil {
		return nil, err
	}
	return &node{kind: "template", value: model.Template{ID: id, BuildSettings: settings}}, nil
}

func scriptImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var step model.Step
	var platform string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"content", &step.ScriptContent,
		"name?", &step.Name,
		"id?", &step.ID,
		"working_dir?", &step.WorkingDir,
		"docker_image?", &step.DockerImage,
		"docker_image_platform?", &platform,
		"docker_run_parameters?", &step.DockerRunParameters,
	); err != nil {
		return nil, err
	}
	step.Type = model.StepTypeScript
	step.DockerImagePlatform = model.ImagePlatform(platform)
	return &node{kind: "step", value: step}, nil
}

func commitStatusPublisherImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var vcsRoot, auth starlark.Value
	var id, githubURL string
	if err := starlark.UnpackArgs(fn, args, kwargs,
		"vcs_root", &vcsRoot,
		"auth?", &auth,
		"github_url?", &githubURL,
		"id?", &id,
	); err != nil {
		return nil, err
	}

	rootID, err := idOf(fn, "vcs_root", vcsRoot)
	if err != nil {
		return nil, err
	}
	publisherAuth, err := authOf(fn, auth)
	if err != nil {
		return nil, err
	}
	return &node{kind: "feature", value: model.Feature{
		ID:   id,
		Type: model.FeatureCommitStatusPublisher,
		CommitStatusPublisher: &model.CommitStatusPublisher{
			VcsRootExtID: rootID,
			Publisher: model.Publisher{
				Type:      model.PublisherGitHub,
				GitHubURL: githubURL,
				Auth:      publisherAuth,
			},
		},
	}}, nil
}

func xmlReportImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var reportType, rules, id string
	var verbose bool
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"report_type", &reportType,
		"rules", &rules,
		"verbose?", &verbose,
		"id?", &id,
	); err != nil {
		return nil, err
	}
	return &node{kind: "feature", value: model.Feature{
		ID:   id,
		Type: model.FeatureXMLReport,
		XMLReport: &model.XMLReport{
			ReportType: model.ReportType(reportType),
			Rules:      rules,
			Verbose:    verbose,
		},
	}}, nil
}

func parallelTestsImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var batches int
	var enabled starlark.Value
	var id string
	if err := starlark.UnpackArgs(fn, args, kwargs,
		"number_of_batches", &batches,
		"enabled?", &enabled,
		"id?", &id,
	); err != nil {
		return nil, err
	}
	on, err := optionalBool(fn, "enabled", enabled)
	if err != nil {
		return nil, err
	}
	return &node{kind: "feature", value: model.Feature{
		ID:            id,
		Type:          model.FeatureParallelTests,
		ParallelTests: &model.ParallelTests{Enabled: on, NumberOfBatches: batches},
	}}, nil
}

func snapshotImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var target starlark.Value
	var onFailure, reuse string
	if err := starlark.UnpackArgs(fn, args, kwargs,
		"build_type", &target,
		"on_dependency_failure?", &onFailure,
		"reuse_builds?", &reuse,
	); err != nil {
		return nil, err
	}
	id, err := idOf(fn, "build_type", target)
	if err != nil {
		return nil, err
	}
	return &node{kind: "dependency", value: model.SnapshotDependency{
		BuildType:           id,
		OnDependencyFailure: model.DependencyFailure(onFailure),
		ReuseBuilds:         model.ReuseBuildsStrategy(reuse),
	}}, nil
}

func vcsRootEntryImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var root starlark.Value
	var absolute bool
	var checkoutRules string
	if err := starlark.UnpackArgs(fn, args, kwargs,
		"root", &root,
		"absolute?", &absolute,
		"checkout_rules?", &checkoutRules,
	); err != nil {
		return nil, err
	}
	id, err := idOf(fn, "root", root)
	if err != nil {
		return nil, err
	}
	return &node{kind: "vcs_root_entry", value: model.VcsRootEntry{
		Root:          id,
		Absolute:      absolute,
		CheckoutRules: checkoutRules,
	}}, nil
}

func failureConditionsImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	fn := b.Name()
	var timeout int
	var nonZero starlark.Value
	if err := starlark.UnpackArgs(fn, args, kwargs,
		"execution_timeout_min?", &timeout,
		"non_zero_exit_code?", &nonZero,
	); err != nil {
		return nil, err
	}
	exitCode, err := optionalBool(fn, "non_zero_exit_code", nonZero)
	if err != nil {
		return nil, err
	}
	return &node{kind: "failure_conditions", value: &model.FailureConditions{
		ExecutionTimeoutMin: timeout,
		NonZeroExitCode:     exitCode,
	}}, nil
}

func credentialImpl(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &id); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %q is not a UUID: %w", b.Name(), id, err)
	}
	return starlark.String(model.NewSecretRef(model.SchemeCredentialsJSON, id)), nil
}

func secretBuiltin(name, scheme string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var locator string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &locator); err != nil {
			return nil, err
		}
		if locator == "" {
			return nil, fmt.Errorf("%s: reference must not be empty", b.Name())
		}
		return starlark.String(model.NewSecretRef(scheme, locator)), nil
	})
}
