package agent

import "github.com/modernice/goes/codec"

const (
	// Created means an Agent was created.
	Created = "rippley.agent.created"

	// Configured means the configuration of an Agent was updated.
	Configured = "rippley.agent.configured"

	// CapabilitiesGranted means capabilities were granted to an Agent.
	CapabilitiesGranted = "rippley.agent.capabilities_granted"

	// Deactivated means an Agent was deactivated.
	Deactivated = "rippley.agent.deactivated"
)

// Events are all Agent events.
var Events = [...]string{
	Created,
	Configured,
	CapabilitiesGranted,
	Deactivated,
}

// CreatedData is the event data for Created.
type CreatedData struct {
	Name   string
	Type   string
	Config map[string]string
}

// ConfiguredData is the event data for Configured.
type ConfiguredData struct {
	Config map[string]string
}

// CapabilitiesGrantedData is the event data for CapabilitiesGranted.
type CapabilitiesGrantedData struct {
	Capabilities []string
}

// DeactivatedData is the event data for Deactivated.
type DeactivatedData struct{}

// RegisterEvents registers events into a registry.
func RegisterEvents(r *codec.Registry) {
	codec.Register[CreatedData](r, Created)
	codec.Register[ConfiguredData](r, Configured)
	codec.Register[CapabilitiesGrantedData](r, CapabilitiesGranted)
	codec.Register[DeactivatedData](r, Deactivated)
}
