package provider

import "fmt"

// Availability reports which providers are configured.
type Availability struct {
	General bool `json:"general"`
	Native  bool `json:"native"`
}

// Set holds both adapters and the default slot. Adapters are immutable after
// construction so a Set is safe for concurrent use.
type Set struct {
	providers map[Identity]Provider
	def       Identity
}

// NewSet builds a Set. def must be General or Native.
func NewSet(def Identity, general, nativ Provider) (*Set, error) {
	if def != General && def != Native {
		return nil, fmt.Errorf("invalid default provider %q", def)
	}
	return &Set{
		providers: map[Identity]Provider{General: general, Native: nativ},
		def:       def,
	}, nil
}

// Default returns the configured default slot.
func (s *Set) Default() Identity { return s.def }

// Select chooses the adapter for one request. An explicit choice is honoured
// as-is, even when that adapter is unconfigured. Otherwise the default is
// used, or the other slot when the default is unconfigured and the other is
// not. When neither is configured the default is returned and dispatch
// surfaces NotConfigured.
func (s *Set) Select(requested Identity) Provider {
	if requested != "" {
		return s.providers[requested]
	}
	p := s.providers[s.def]
	if p.Configured() {
		return p
	}
	if alt := s.providers[s.def.Other()]; alt.Configured() {
		return alt
	}
	return p
}

// Availability reports configuration presence of both slots.
func (s *Set) Availability() Availability {
	return Availability{
		General: s.providers[General].Configured(),
		Native:  s.providers[Native].Configured(),
	}
}
