// Package manifest loads a flat description of groups, edges and
// account memberships from YAML and applies it to a meshauth.Engine in
// one bulk operation. It exists for initial-load and fixture-seeding
// use cases where per-edge invalidation would be wasted work: the
// whole manifest is applied and the engine's caches are flushed once.
package manifest

import (
	"context"
	"fmt"
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/pthm/meshauth/meshauth"
)

// Manifest is the on-disk shape of a bulk-load file.
type Manifest struct {
	Groups []string   `json:"groups"`
	Edges  []EdgeSpec `json:"edges"`
}

// EdgeSpec is one edge entry. Type defaults to "or" when omitted.
// Account is mutually exclusive with Child: setting it produces an
// EdgeAccount edge whose child is the decimal account id.
type EdgeSpec struct {
	Parent  string            `json:"parent"`
	Child   string            `json:"child,omitempty"`
	Account *meshauth.Account `json:"account,omitempty"`
	Type    meshauth.EdgeType `json:"type,omitempty"`
}

// Parse decodes raw YAML bytes into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// toEngineEdges resolves EdgeSpecs into meshauth.Edge values, defaulting Type
// to EdgeOr and rewriting an Account-bearing spec into an EdgeAccount
// edge keyed by the account's decimal representation.
func (m *Manifest) toEngineEdges() ([]meshauth.Edge, error) {
	edges := make([]meshauth.Edge, 0, len(m.Edges))
	for i, spec := range m.Edges {
		edgeType := spec.Type
		if edgeType == "" {
			edgeType = meshauth.EdgeOr
		}

		child := spec.Child
		if spec.Account != nil {
			if spec.Child != "" {
				return nil, fmt.Errorf("manifest edge %d: both child and account set", i)
			}
			child = strconv.FormatInt(int64(*spec.Account), 10)
			edgeType = meshauth.EdgeAccount
		}
		if child == "" {
			return nil, fmt.Errorf("manifest edge %d: neither child nor account set", i)
		}

		edges = append(edges, meshauth.Edge{Parent: spec.Parent, Child: child, Type: edgeType})
	}
	return edges, nil
}

// Apply parses data and loads it into engine via a single BulkLoad
// call, so the engine's expansion caches are flushed exactly once
// regardless of manifest size.
func Apply(ctx context.Context, engine *meshauth.Engine, data []byte) error {
	m, err := Parse(data)
	if err != nil {
		return err
	}
	edges, err := m.toEngineEdges()
	if err != nil {
		return err
	}
	return engine.BulkLoad(ctx, m.Groups, edges)
}
