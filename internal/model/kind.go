package model

import "fmt"

// Kind identifies the build tool that produced a build. It is the
// discriminator for every kind-specific accessor in this package.
type Kind string

const (
	KindGradle Kind = "gradle"
	KindMaven  Kind = "maven"
	KindBazel  Kind = "bazel"
	KindSbt    Kind = "sbt"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{KindGradle, KindMaven, KindBazel, KindSbt}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindGradle, KindMaven, KindBazel, KindSbt:
		return true
	}
	return false
}

// ParseKind converts a build tool type string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown build tool type %q", s)
	}
	return k, nil
}
