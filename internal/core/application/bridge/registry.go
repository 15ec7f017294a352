package bridge

import (
	"github.com/walletd-network/walletd/internal/core/domain"
)

// Registry holds the bridge implementations available to the daemon, keyed
// by family tag. It is constructed explicitly by whoever composes the
// bridges so tests can assemble their own.
type Registry struct {
	bridges map[string]Bridge
}

// NewRegistry returns a registry serving the given bridges.
func NewRegistry(bridges ...Bridge) *Registry {
	m := make(map[string]Bridge, len(bridges))
	for _, b := range bridges {
		m[b.Family()] = b
	}
	return &Registry{bridges: m}
}

// Get returns the bridge registered for the family tag, or
// domain.ErrUnsupportedFamily.
func (r *Registry) Get(family string) (Bridge, error) {
	b, ok := r.bridges[family]
	if !ok {
		return nil, domain.ErrUnsupportedFamily
	}
	return b, nil
}

// Families lists the registered family tags.
func (r *Registry) Families() []string {
	families := make([]string, 0, len(r.bridges))
	for family := range r.bridges {
		families = append(families, family)
	}
	return families
}
