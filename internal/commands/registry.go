package commands

import (
	"github.com/modernice/goes/codec"
	"github.com/modernice/goes/command"
	"github.com/neoglyph/rippley/agent"
)

func NewRegistry() *codec.Registry {
	r := command.NewRegistry()
	Register(r)
	return r
}

func Register(r *codec.Registry) {
	agent.RegisterCommands(r)
}
