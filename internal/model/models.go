package model

import (
	"fmt"
	"sort"
	"strings"
)

// Model names an optional sub-document of a build that can be requested
// separately from the server.
type Model string

// ModelAll is the wildcard model. Requesting it asks for every model of the
// build's kind.
const ModelAll Model = "*"

const (
	ModelGradleArtifactTransformExecutions Model = "gradle-artifact-transform-executions"
	ModelGradleAttributes                  Model = "gradle-attributes"
	ModelGradleBuildCachePerformance       Model = "gradle-build-cache-performance"
	ModelGradleBuildProfileOverview        Model = "gradle-build-profile-overview"
	ModelGradleConfigurationCache          Model = "gradle-configuration-cache"
	ModelGradleDeprecations                Model = "gradle-deprecations"
	ModelGradleNetworkActivity             Model = "gradle-network-activity"
	ModelGradlePlugins                     Model = "gradle-plugins"
	ModelGradleProjects                    Model = "gradle-projects"
	ModelGradleResourceUsage               Model = "gradle-resource-usage"

	ModelMavenAttributes            Model = "maven-attributes"
	ModelMavenBuildCachePerformance Model = "maven-build-cache-performance"
	ModelMavenDependencyResolution  Model = "maven-dependency-resolution"
	ModelMavenModules               Model = "maven-modules"

	ModelBazelAttributes   Model = "bazel-attributes"
	ModelBazelCriticalPath Model = "bazel-critical-path"
)

// modelsByKind is the registry of known models, in wire order.
var modelsByKind = map[Kind][]Model{
	KindGradle: {
		ModelGradleArtifactTransformExecutions,
		ModelGradleAttributes,
		ModelGradleBuildCachePerformance,
		ModelGradleBuildProfileOverview,
		ModelGradleConfigurationCache,
		ModelGradleDeprecations,
		ModelGradleNetworkActivity,
		ModelGradlePlugins,
		ModelGradleProjects,
		ModelGradleResourceUsage,
	},
	KindMaven: {
		ModelMavenAttributes,
		ModelMavenBuildCachePerformance,
		ModelMavenDependencyResolution,
		ModelMavenModules,
	},
	KindBazel: {
		ModelBazelAttributes,
		ModelBazelCriticalPath,
	},
	KindSbt: nil,
}

// ModelsFor returns every model defined for the given kind.
func ModelsFor(k Kind) []Model {
	return append([]Model(nil), modelsByKind[k]...)
}

// String returns the wire name of the model.
func (m Model) String() string {
	return string(m)
}

// Kind returns the kind this model belongs to, or "" for the wildcard and
// unknown models.
func (m Model) Kind() Kind {
	for k, models := range modelsByKind {
		for _, candidate := range models {
			if candidate == m {
				return k
			}
		}
	}
	return ""
}

// IsFor reports whether the model applies to builds of kind k. The wildcard
// applies to every kind.
func (m Model) IsFor(k Kind) bool {
	return m == ModelAll || m.Kind() == k
}

// Key returns the JSON key used for the model inside a build's "models"
// object: the wire name in lower camel case ("gradle-attributes" becomes
// "gradleAttributes").
func (m Model) Key() string {
	parts := strings.Split(string(m), "-")
	var sb strings.Builder
	sb.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}

// ParseModel converts a wire name into a Model.
func ParseModel(s string) (Model, error) {
	m := Model(strings.TrimSpace(s))
	if m == ModelAll || m.Kind() != "" {
		return m, nil
	}
	return "", fmt.Errorf("unknown build model %q", s)
}

// ModelSet is an immutable set of models. The zero value is the empty set.
type ModelSet struct {
	m map[Model]struct{}
}

// NewModelSet returns a set holding the given models.
func NewModelSet(models ...Model) ModelSet {
	s := ModelSet{m: make(map[Model]struct{}, len(models))}
	for _, m := range models {
		s.m[m] = struct{}{}
	}
	return s
}

// ParseModelSet parses a list of wire names into a set.
func ParseModelSet(names []string) (ModelSet, error) {
	models := make([]Model, 0, len(names))
	for _, n := range names {
		m, err := ParseModel(n)
		if err != nil {
			return ModelSet{}, err
		}
		models = append(models, m)
	}
	return NewModelSet(models...), nil
}

// Union returns a set holding every model in the given sets.
func Union(sets ...ModelSet) ModelSet {
	var models []Model
	for _, s := range sets {
		for m := range s.m {
			models = append(models, m)
		}
	}
	return NewModelSet(models...)
}

// Len returns the number of models in the set.
func (s ModelSet) Len() int { return len(s.m) }

// IsEmpty reports whether the set holds no models.
func (s ModelSet) IsEmpty() bool { return len(s.m) == 0 }

// Has reports whether m is in the set.
func (s ModelSet) Has(m Model) bool {
	_, ok := s.m[m]
	return ok
}

// HasAll reports whether the set contains the wildcard.
func (s ModelSet) HasAll() bool { return s.Has(ModelAll) }

// For returns the models in the set that are relevant to builds of kind k.
// The wildcard expands to every model of that kind; models of other kinds
// are dropped.
func (s ModelSet) For(k Kind) ModelSet {
	if s.HasAll() {
		return NewModelSet(modelsByKind[k]...)
	}
	var relevant []Model
	for m := range s.m {
		if m.IsFor(k) {
			relevant = append(relevant, m)
		}
	}
	return NewModelSet(relevant...)
}

// ContainsAll reports whether every model in other is in s.
func (s ModelSet) ContainsAll(other ModelSet) bool {
	for m := range other.m {
		if !s.Has(m) {
			return false
		}
	}
	return true
}

// Models returns the models in the set sorted by name.
func (s ModelSet) Models() []Model {
	out := make([]Model, 0, len(s.m))
	for m := range s.m {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Names returns the wire names of the models in the set, sorted.
func (s ModelSet) Names() []string {
	models := s.Models()
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = string(m)
	}
	return names
}

func (s ModelSet) String() string {
	return "[" + strings.Join(s.Names(), ", ") + "]"
}
