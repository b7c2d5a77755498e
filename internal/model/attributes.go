package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupported is returned by accessors that have no meaning for the
	// build's kind.
	ErrUnsupported = errors.New("not supported")

	// ErrModelNotPresent is returned when an accessor needs a model the build
	// was not fetched with.
	ErrModelNotPresent = errors.New("model not present")
)

// Value is a custom key/value pair attached to a build.
type Value struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Environment describes where a build ran.
type Environment struct {
	Username         string   `json:"username,omitempty"`
	OperatingSystem  string   `json:"operatingSystem,omitempty"`
	NumberOfCPUCores int      `json:"numberOfCpuCores,omitempty"`
	PublicHostname   string   `json:"publicHostname,omitempty"`
	LocalHostname    string   `json:"localHostname,omitempty"`
	LocalIPAddresses []string `json:"localIpAddresses,omitempty"`
}

// GradleAttributes is the body of the gradle-attributes model.
type GradleAttributes struct {
	ID                        string      `json:"id,omitempty"`
	BuildStartTime            int64       `json:"buildStartTime"`
	BuildDuration             int64       `json:"buildDuration"`
	GradleVersion             string      `json:"gradleVersion,omitempty"`
	PluginVersion             string      `json:"pluginVersion,omitempty"`
	RootProjectName           string      `json:"rootProjectName,omitempty"`
	RequestedTasks            []string    `json:"requestedTasks,omitempty"`
	HasFailed                 bool        `json:"hasFailed"`
	HasVerificationFailure    bool        `json:"hasVerificationFailure,omitempty"`
	HasNonVerificationFailure bool        `json:"hasNonVerificationFailure,omitempty"`
	Tags                      []string    `json:"tags,omitempty"`
	Values                    []Value     `json:"values,omitempty"`
	Environment               Environment `json:"environment"`
}

// MavenAttributes is the body of the maven-attributes model.
type MavenAttributes struct {
	ID                  string      `json:"id,omitempty"`
	BuildStartTime      int64       `json:"buildStartTime"`
	BuildDuration       int64       `json:"buildDuration"`
	MavenVersion        string      `json:"mavenVersion,omitempty"`
	TopLevelProjectName string      `json:"topLevelProjectName,omitempty"`
	RequestedGoals      []string    `json:"requestedGoals,omitempty"`
	HasFailed           bool        `json:"hasFailed"`
	Tags                []string    `json:"tags,omitempty"`
	Values              []Value     `json:"values,omitempty"`
	Environment         Environment `json:"environment"`
}

// BazelAttributes is the body of the bazel-attributes model.
type BazelAttributes struct {
	ID             string   `json:"id,omitempty"`
	BuildStartTime int64    `json:"buildStartTime"`
	BuildDuration  int64    `json:"buildDuration"`
	BazelVersion   string   `json:"bazelVersion,omitempty"`
	TargetPatterns []string `json:"targetPatterns,omitempty"`
	User           string   `json:"user,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Values         []Value  `json:"values,omitempty"`
}

// commonAttributes is the subset of attribute fields shared across kinds.
type commonAttributes struct {
	startTime int64
	duration  int64
	project   string
	workUnits []string
	failed    bool
	user      string
	tags      []string
	values    []Value
}

func unsupported(accessor string, k Kind) error {
	return fmt.Errorf("'%s' is not supported for %s builds: %w", accessor, k, ErrUnsupported)
}

// attributes decodes the attributes model of b into the shared view. sbt
// builds have no attributes model, so every accessor is unsupported.
func attributes(b *Build, accessor string) (commonAttributes, error) {
	switch b.BuildToolType {
	case KindGradle:
		var a GradleAttributes
		if err := b.DecodeModel(ModelGradleAttributes, &a); err != nil {
			return commonAttributes{}, fmt.Errorf("%s: %w", accessor, err)
		}
		return commonAttributes{
			startTime: a.BuildStartTime,
			duration:  a.BuildDuration,
			project:   a.RootProjectName,
			workUnits: a.RequestedTasks,
			failed:    a.HasFailed,
			user:      a.Environment.Username,
			tags:      a.Tags,
			values:    a.Values,
		}, nil
	case KindMaven:
		var a MavenAttributes
		if err := b.DecodeModel(ModelMavenAttributes, &a); err != nil {
			return commonAttributes{}, fmt.Errorf("%s: %w", accessor, err)
		}
		return commonAttributes{
			startTime: a.BuildStartTime,
			duration:  a.BuildDuration,
			project:   a.TopLevelProjectName,
			workUnits: a.RequestedGoals,
			failed:    a.HasFailed,
			user:      a.Environment.Username,
			tags:      a.Tags,
			values:    a.Values,
		}, nil
	case KindBazel:
		var a BazelAttributes
		if err := b.DecodeModel(ModelBazelAttributes, &a); err != nil {
			return commonAttributes{}, fmt.Errorf("%s: %w", accessor, err)
		}
		return commonAttributes{
			startTime: a.BuildStartTime,
			duration:  a.BuildDuration,
			workUnits: a.TargetPatterns,
			user:      a.User,
			tags:      a.Tags,
			values:    a.Values,
		}, nil
	default:
		return commonAttributes{}, unsupported(accessor, b.BuildToolType)
	}
}

// StartTime returns when the build started.
func StartTime(b *Build) (time.Time, error) {
	a, err := attributes(b, "startTime")
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(a.startTime), nil
}

// Duration returns how long the build ran.
func Duration(b *Build) (time.Duration, error) {
	a, err := attributes(b, "duration")
	if err != nil {
		return 0, err
	}
	return time.Duration(a.duration) * time.Millisecond, nil
}

// ProjectName returns the root (Gradle) or top-level (Maven) project name.
func ProjectName(b *Build) (string, error) {
	if b.BuildToolType == KindBazel {
		return "", unsupported("projectName", b.BuildToolType)
	}
	a, err := attributes(b, "projectName")
	if err != nil {
		return "", err
	}
	return a.project, nil
}

// RequestedWorkUnits returns the requested tasks, goals or target patterns.
func RequestedWorkUnits(b *Build) ([]string, error) {
	a, err := attributes(b, "requestedWorkUnits")
	if err != nil {
		return nil, err
	}
	return a.workUnits, nil
}

// HasFailed reports whether the build failed.
func HasFailed(b *Build) (bool, error) {
	if b.BuildToolType == KindBazel {
		return false, unsupported("hasFailed", b.BuildToolType)
	}
	a, err := attributes(b, "hasFailed")
	if err != nil {
		return false, err
	}
	return a.failed, nil
}

// User returns the name of the user that ran the build.
func User(b *Build) (string, error) {
	a, err := attributes(b, "user")
	if err != nil {
		return "", err
	}
	return a.user, nil
}

// Tags returns the tags attached to the build.
func Tags(b *Build) ([]string, error) {
	a, err := attributes(b, "tags")
	if err != nil {
		return nil, err
	}
	return a.tags, nil
}

// HasTag reports whether the build carries tag.
func HasTag(b *Build, tag string) (bool, error) {
	tags, err := Tags(b)
	if err != nil {
		return false, err
	}
	for _, t := range tags {
		if t == tag {
			return true, nil
		}
	}
	return false, nil
}

// Values returns the custom values attached to the build.
func Values(b *Build) ([]Value, error) {
	a, err := attributes(b, "values")
	if err != nil {
		return nil, err
	}
	return a.values, nil
}

// ValuesNamed returns every value with the given name, in order.
func ValuesNamed(b *Build, name string) ([]string, error) {
	values, err := Values(b)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range values {
		if v.Name == name {
			out = append(out, v.Value)
		}
	}
	return out, nil
}

// SingleValue returns the only value with the given name. It reports false
// when there is none and an error when there is more than one.
func SingleValue(b *Build, name string) (string, bool, error) {
	values, err := ValuesNamed(b, name)
	if err != nil {
		return "", false, err
	}
	switch len(values) {
	case 0:
		return "", false, nil
	case 1:
		return values[0], true, nil
	default:
		return "", false, fmt.Errorf("multiple values for key %q", name)
	}
}
