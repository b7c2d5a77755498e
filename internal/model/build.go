package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Build is a single build record as exposed by the build-telemetry server.
// Builds are treated as values: nothing in this module mutates a Build after
// it has been decoded or constructed.
type Build struct {
	ID                string                   `json:"id"`
	AvailableAt       int64                    `json:"availableAt"` // epoch millis
	BuildToolType     Kind                     `json:"buildToolType"`
	BuildToolVersion  string                   `json:"buildToolVersion,omitempty"`
	BuildAgentVersion string                   `json:"buildAgentVersion,omitempty"`
	Models            map[string]ModelEnvelope `json:"models,omitempty"`

	// AllModels is set when the build was requested with the wildcard model,
	// so every model the server could produce is already embedded.
	AllModels bool `json:"allModels,omitempty"`
}

// ModelEnvelope wraps one model of a build. The server reports either the
// model itself or a problem explaining why it could not be produced.
type ModelEnvelope struct {
	Model   json.RawMessage `json:"model,omitempty"`
	Problem json.RawMessage `json:"problem,omitempty"`
}

// Available returns the time the build became available on the server.
func (b *Build) Available() time.Time {
	return time.UnixMilli(b.AvailableAt)
}

// Envelope returns the envelope for m, if the build carries one.
func (b *Build) Envelope(m Model) (ModelEnvelope, bool) {
	if b.Models == nil {
		return ModelEnvelope{}, false
	}
	env, ok := b.Models[m.Key()]
	return env, ok
}

// HasModel reports whether the build embeds a body for m. An envelope that
// only carries a problem does not count.
func (b *Build) HasModel(m Model) bool {
	env, ok := b.Envelope(m)
	return ok && len(env.Model) > 0 && string(env.Model) != "null"
}

// Present returns the set of models embedded in the build.
func (b *Build) Present() ModelSet {
	var present []Model
	for _, m := range modelsByKind[b.BuildToolType] {
		if b.HasModel(m) {
			present = append(present, m)
		}
	}
	return NewModelSet(present...)
}

// Satisfies reports whether the build embeds every model in required that is
// relevant to its kind.
func (b *Build) Satisfies(required ModelSet) bool {
	if b.AllModels {
		return true
	}
	return b.Present().ContainsAll(required.For(b.BuildToolType))
}

// DecodeModel unmarshals the body of model m into v.
func (b *Build) DecodeModel(m Model, v any) error {
	if !b.HasModel(m) {
		return fmt.Errorf("%s: %w", m, ErrModelNotPresent)
	}
	env, _ := b.Envelope(m)
	if err := json.Unmarshal(env.Model, v); err != nil {
		return fmt.Errorf("decoding %s: %w", m, err)
	}
	return nil
}

// WithModel returns a copy of b with the body of m set to v.
func (b *Build) WithModel(m Model, v any) (*Build, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", m, err)
	}
	out := *b
	out.Models = make(map[string]ModelEnvelope, len(b.Models)+1)
	for k, env := range b.Models {
		out.Models[k] = env
	}
	out.Models[m.Key()] = ModelEnvelope{Model: data}
	return &out, nil
}

// Validate checks that the build carries an id and a known kind.
func (b *Build) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("build id is required")
	}
	if !b.BuildToolType.IsValid() {
		return fmt.Errorf("build %s: unknown build tool type %q", b.ID, b.BuildToolType)
	}
	return nil
}
