package events

import (
	"github.com/modernice/goes/codec"
	"github.com/modernice/goes/event"
	"github.com/neoglyph/rippley/agent"
)

// NewRegistry returns a new event registry with all events registered.
func NewRegistry() *codec.Registry {
	r := event.NewRegistry()
	Register(r)
	return r
}

// Register registers all events into the event registry.
func Register(r *codec.Registry) {
	agent.RegisterEvents(r)
}
