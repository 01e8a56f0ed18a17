package resolve

import (
	"sort"

	"github.com/sourceplane/pipecfg/internal/model"
)

// DependencyResolver answers snapshot dependency queries over effective
// build types, so dependencies inherited from templates are included
type DependencyResolver struct {
	deps map[string][]string
}

// NewDependencyResolver creates a new dependency resolver
func NewDependencyResolver(effective []*model.EffectiveBuildType) *DependencyResolver {
	deps := make(map[string][]string, len(effective))
	for _, eff := range effective {
		targets := make([]string, 0, len(eff.Dependencies))
		for _, d := range eff.Dependencies {
			targets = append(targets, d.BuildType)
		}
		deps[eff.ID] = targets
	}
	return &DependencyResolver{deps: deps}
}

// Graph returns the id -> direct dependency ids mapping
func (dr *DependencyResolver) Graph() map[string][]string {
	return dr.deps
}

// GetDependencies returns all direct dependencies of a build type
func (dr *DependencyResolver) GetDependencies(id string) []string {
	deps, exists := dr.deps[id]
	if !exists {
		return []string{}
	}
	return append([]string(nil), deps...)
}

// GetDependents returns all build types that depend on the given one
func (dr *DependencyResolver) GetDependents(id string) []string {
	dependents := make([]string, 0)

	for name, deps := range dr.deps {
		for _, dep := range deps {
			if dep == id {
				dependents = append(dependents, name)
				break
			}
		}
	}

	sort.Strings(dependents)
	return dependents
}

// GetTransitiveDependencies returns all transitive dependencies of a build type
func (dr *DependencyResolver) GetTransitiveDependencies(id string) map[string]bool {
	return dr.traverse(id, dr.GetDependencies)
}

// GetTransitiveDependents returns all build types that transitively depend on the given one
func (dr *DependencyResolver) GetTransitiveDependents(id string) map[string]bool {
	return dr.traverse(id, dr.GetDependents)
}

func (dr *DependencyResolver) traverse(start string, next func(string) []string) map[string]bool {
	result := make(map[string]bool)
	visited := make(map[string]bool)

	var walk func(string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true

		for _, n := range next(name) {
			result[n] = true
			walk(n)
		}
	}

	walk(start)
	return result
}

// Closure returns the given build types plus everything they transitively
// depend on
func (dr *DependencyResolver) Closure(ids ...string) map[string]bool {
	included := make(map[string]bool)
	for _, id := range ids {
		included[id] = true
		for dep := range dr.GetTransitiveDependencies(id) {
			included[dep] = true
		}
	}
	return included
}
