package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourceplane/pipecfg/internal/model"
)

var kotlinImports = []string{
	"jetbrains.buildServer.configs.kotlin.*",
	"jetbrains.buildServer.configs.kotlin.buildFeatures.*",
	"jetbrains.buildServer.configs.kotlin.buildSteps.*",
	"jetbrains.buildServer.configs.kotlin.vcs.GitVcsRoot",
}

type kotlinWriter struct {
	sb     strings.Builder
	indent int
}

func (w *kotlinWriter) line(format string, args ...interface{}) {
	if format == "" {
		w.sb.WriteString("\n")
		return
	}
	w.sb.WriteString(strings.Repeat("    ", w.indent))
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteString("\n")
}

func (w *kotlinWriter) open(format string, args ...interface{}) {
	w.line(format+" {", args...)
	w.indent++
}

func (w *kotlinWriter) close(suffix string) {
	w.indent--
	w.line("}%s", suffix)
}

// kotlinString quotes s as a Kotlin string literal
func kotlinString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// RenderKotlin renders a settings.kts in the CI host's Kotlin DSL. Secrets are
// written as their references.
func RenderKotlin(n *model.NormalizedSettings) string {
	w := &kotlinWriter{}
	for _, imp := range kotlinImports {
		w.line("import %s", imp)
	}
	w.line("")
	w.line("version = %s", kotlinString(n.Settings.Version))
	w.line("")

	w.open("project")
	kotlinProjectBody(w, n.Root(), true)
	w.close("")

	for _, id := range n.ProjectOrder {
		p := n.Projects[id]
		for i := range p.VcsRoots {
			w.line("")
			kotlinVcsRoot(w, &p.VcsRoots[i])
		}
		for i := range p.Templates {
			tmpl := &p.Templates[i]
			w.line("")
			w.open("object %s : Template(", tmpl.ID)
			kotlinBuildSettings(w, &tmpl.BuildSettings)
			w.close(")")
		}
		for i := range p.BuildTypes {
			bt := &p.BuildTypes[i]
			w.line("")
			w.open("object %s : BuildType(", bt.ID)
			if len(bt.Templates) > 0 {
				w.line("templates(%s)", strings.Join(bt.Templates, ", "))
			}
			if bt.IsComposite() {
				w.line("type = BuildTypeSettings.Type.COMPOSITE")
			}
			kotlinBuildSettings(w, &bt.BuildSettings)
			w.close(")")
		}
		if !n.IsRoot(id) {
			w.line("")
			w.open("object %s : Project(", id)
			kotlinProjectBody(w, p, false)
			w.close(")")
		}
	}

	return w.sb.String()
}

func kotlinProjectBody(w *kotlinWriter, p *model.Project, root bool) {
	if !root {
		w.line("name = %s", kotlinString(p.Name))
	}
	if p.Description != "" {
		w.line("description = %s", kotlinString(p.Description))
	}
	for _, root := range p.VcsRoots {
		w.line("vcsRoot(%s)", root.ID)
	}
	for _, tmpl := range p.Templates {
		w.line("template(%s)", tmpl.ID)
	}
	for _, bt := range p.BuildTypes {
		w.line("buildType(%s)", bt.ID)
	}
	kotlinParams(w, p.Params, p.SecureParams)
	for _, sub := range p.SubProjects {
		w.line("subProject(%s)", sub.ID)
	}
}

func kotlinParams(w *kotlinWriter, params map[string]string, secure map[string]model.SecretRef) {
	if len(params) == 0 && len(secure) == 0 {
		return
	}
	w.open("params")
	for _, name := range sortedNames(params) {
		w.line("param(%s, %s)", kotlinString(name), kotlinString(params[name]))
	}
	for _, name := range sortedNames(secure) {
		w.line("password(%s, %s)", kotlinString(name), kotlinString(secure[name].String()))
	}
	w.close("")
}

func kotlinVcsRoot(w *kotlinWriter, root *model.VcsRoot) {
	w.open("object %s : GitVcsRoot(", root.ID)
	w.line("name = %s", kotlinString(root.Name))
	w.line("url = %s", kotlinString(root.URL))
	if root.Branch != "" {
		w.line("branch = %s", kotlinString(root.Branch))
	}
	if root.BranchSpec != "" {
		w.line("branchSpec = %s", kotlinString(root.BranchSpec))
	}
	if root.CheckoutPolicy != "" && root.CheckoutPolicy != model.CheckoutAuto {
		w.line("checkoutPolicy = GitVcsRoot.AgentCheckoutPolicy.%s", root.CheckoutPolicy)
	}
	if a := root.Auth; a != nil {
		switch a.Type {
		case model.AuthPassword:
			w.open("authMethod = password")
			if a.UserName != "" {
				w.line("userName = %s", kotlinString(a.UserName))
			}
			w.line("password = %s", kotlinString(a.Password.String()))
			w.close("")
		case model.AuthPersonalToken:
			w.open("authMethod = password")
			if a.UserName != "" {
				w.line("userName = %s", kotlinString(a.UserName))
			}
			w.line("password = %s", kotlinString(a.Token.String()))
			w.close("")
		}
	}
	w.close(")")
}

func kotlinBuildSettings(w *kotlinWriter, s *model.BuildSettings) {
	w.line("name = %s", kotlinString(s.Name))
	if s.Description != "" {
		w.line("description = %s", kotlinString(s.Description))
	}
	if s.ArtifactRules != "" {
		w.line("artifactRules = %s", kotlinString(s.ArtifactRules))
	}

	kotlinParams(w, s.Params, s.SecureParams)

	if s.Vcs != nil && (len(s.Vcs.Roots) > 0 || s.Vcs.ShowDependenciesChanges) {
		w.open("vcs")
		for _, entry := range s.Vcs.Roots {
			args := []string{entry.Root}
			if entry.Absolute {
				args[0] = fmt.Sprintf("AbsoluteId(%s)", kotlinString(entry.Root))
			}
			for _, rule := range strings.Split(entry.CheckoutRules, "\n") {
				if rule = strings.TrimSpace(rule); rule != "" {
					args = append(args, kotlinString(rule))
				}
			}
			w.line("root(%s)", strings.Join(args, ", "))
		}
		if s.Vcs.ShowDependenciesChanges {
			w.line("showDependenciesChanges = true")
		}
		w.close("")
	}

	if len(s.Steps) > 0 {
		w.open("steps")
		for _, step := range s.Steps {
			kotlinStep(w, step)
		}
		w.close("")
	}

	if len(s.Features) > 0 {
		w.open("features")
		for _, f := range s.Features {
			kotlinFeature(w, f)
		}
		w.close("")
	}

	if len(s.Dependencies) > 0 {
		w.open("dependencies")
		for _, d := range s.Dependencies {
			w.open("snapshot(%s)", d.BuildType)
			w.line("onDependencyFailure = FailureAction.%s", d.OnDependencyFailure)
			w.line("reuseBuilds = ReuseBuilds.%s", d.ReuseBuilds)
			w.close("")
		}
		w.close("")
	}

	if fc := s.FailureConditions; fc != nil && (fc.ExecutionTimeoutMin > 0 || fc.NonZeroExitCode != nil) {
		w.open("failureConditions")
		if fc.ExecutionTimeoutMin > 0 {
			w.line("executionTimeoutMin = %d", fc.ExecutionTimeoutMin)
		}
		if fc.NonZeroExitCode != nil {
			w.line("nonZeroExitCode = %t", *fc.NonZeroExitCode)
		}
		w.close("")
	}

	if len(s.DisabledSettings) > 0 {
		quoted := make([]string, 0, len(s.DisabledSettings))
		for _, id := range s.DisabledSettings {
			quoted = append(quoted, kotlinString(id))
		}
		w.line("disableSettings(%s)", strings.Join(quoted, ", "))
	}
}

func kotlinStep(w *kotlinWriter, step model.Step) {
	w.open("script")
	if step.ID != "" {
		w.line("id = %s", kotlinString(step.ID))
	}
	if step.Name != "" {
		w.line("name = %s", kotlinString(step.Name))
	}
	if step.WorkingDir != "" {
		w.line("workingDir = %s", kotlinString(step.WorkingDir))
	}
	w.line("scriptContent = %s", kotlinString(step.ScriptContent))
	if step.DockerImage != "" {
		w.line("dockerImage = %s", kotlinString(step.DockerImage))
	}
	switch step.DockerImagePlatform {
	case model.PlatformLinux:
		w.line("dockerImagePlatform = ScriptBuildStep.ImagePlatform.Linux")
	case model.PlatformWindows:
		w.line("dockerImagePlatform = ScriptBuildStep.ImagePlatform.Windows")
	}
	if step.DockerRunParameters != "" {
		w.line("dockerRunParameters = %s", kotlinString(step.DockerRunParameters))
	}
	w.close("")
}

func kotlinFeature(w *kotlinWriter, f model.Feature) {
	switch {
	case f.Type == model.FeatureCommitStatusPublisher && f.CommitStatusPublisher != nil:
		csp := f.CommitStatusPublisher
		w.open("commitStatusPublisher")
		if f.ID != "" {
			w.line("id = %s", kotlinString(f.ID))
		}
		w.line("vcsRootExtId = \"${%s.id}\"", csp.VcsRootExtID)
		w.open("publisher = github")
		w.line("githubUrl = %s", kotlinString(csp.Publisher.GitHubURL))
		if a := csp.Publisher.Auth; a != nil {
			switch a.Type {
			case model.AuthPersonalToken:
				w.open("authType = personalToken")
				w.line("token = %s", kotlinString(a.Token.String()))
				w.close("")
			case model.AuthPassword:
				w.open("authType = password")
				w.line("userName = %s", kotlinString(a.UserName))
				w.line("password = %s", kotlinString(a.Password.String()))
				w.close("")
			}
		}
		w.close("")
		w.close("")
	case f.Type == model.FeatureXMLReport && f.XMLReport != nil:
		w.open("xmlReport")
		if f.ID != "" {
			w.line("id = %s", kotlinString(f.ID))
		}
		w.line("reportType = XmlReport.XmlReportType.%s", f.XMLReport.ReportType)
		w.line("rules = %s", kotlinString(f.XMLReport.Rules))
		if f.XMLReport.Verbose {
			w.line("verbose = true")
		}
		w.close("")
	case f.Type == model.FeatureParallelTests && f.ParallelTests != nil:
		w.open("parallelTests")
		if f.ID != "" {
			w.line("id = %s", kotlinString(f.ID))
		}
		if !f.ParallelTests.IsEnabled() {
			w.line("enabled = false")
		}
		w.line("numberOfBatches = %d", f.ParallelTests.NumberOfBatches)
		w.close("")
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
