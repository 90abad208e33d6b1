package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modernice/goes/codec"
	"github.com/modernice/goes/command"
	"github.com/modernice/goes/helper/streams"
)

// Agent commands
const (
	CreateCommand     = "rippley.agent.create"
	ConfigureCommand  = "rippley.agent.configure"
	DeactivateCommand = "rippley.agent.deactivate"
)

type createPayload struct {
	Name   string
	Type   string
	Config map[string]string
}

// CreateCmd returns the command to create the Agent with the given UUID.
func CreateCmd(id uuid.UUID, name, typ string, config map[string]string) command.Command {
	return command.New(CreateCommand, createPayload{
		Name:   name,
		Type:   typ,
		Config: config,
	}, command.Aggregate(Aggregate, id)).Any()
}

type configurePayload struct {
	Config map[string]string
}

// ConfigureCmd returns the command to merge config into the configuration of
// the Agent with the given UUID.
func ConfigureCmd(id uuid.UUID, config map[string]string) command.Command {
	return command.New(ConfigureCommand, configurePayload{Config: config}, command.Aggregate(Aggregate, id)).Any()
}

type deactivatePayload struct{}

// DeactivateCmd returns the command to deactivate the Agent with the given UUID.
func DeactivateCmd(id uuid.UUID) command.Command {
	return command.New(DeactivateCommand, deactivatePayload{}, command.Aggregate(Aggregate, id)).Any()
}

// RegisterCommands registers commands into a registry.
func RegisterCommands(r *codec.Registry) {
	codec.Register[createPayload](r, CreateCommand)
	codec.Register[configurePayload](r, ConfigureCommand)
	codec.Register[deactivatePayload](r, DeactivateCommand)
}

// HandleCommands handles Agent commands until ctx is canceled. Agent names are
// kept unique through the provided Lookup. Created Agents are shaped by the
// Blueprints registered in types; an unregistered type falls back to the basic
// Blueprint.
func HandleCommands(ctx context.Context, bus command.Bus, agents Repository, lookup *Lookup, types *Factory) <-chan error {
	createErrors := command.MustHandle(ctx, bus, CreateCommand, func(ctx command.Ctx[createPayload]) error {
		load := ctx.Payload()

		if _, ok := lookup.Name(load.Name); ok {
			return fmt.Errorf("%q: %w", load.Name, ErrNameTaken)
		}

		a, err := types.Make(ctx.AggregateID(), load.Name, load.Type, load.Config)
		if err != nil {
			return err
		}

		if err := agents.Save(ctx, a); err != nil {
			return fmt.Errorf("save agent: %w", err)
		}

		return nil
	})

	configureErrors := command.MustHandle(ctx, bus, ConfigureCommand, func(ctx command.Ctx[configurePayload]) error {
		load := ctx.Payload()

		return agents.Use(ctx, ctx.AggregateID(), func(a *Agent) error {
			return a.Configure(load.Config)
		})
	})

	deactivateErrors := command.MustHandle(ctx, bus, DeactivateCommand, func(ctx command.Ctx[deactivatePayload]) error {
		return agents.Use(ctx, ctx.AggregateID(), func(a *Agent) error {
			return a.Deactivate()
		})
	})

	return streams.FanInContext(ctx, createErrors, configureErrors, deactivateErrors)
}
