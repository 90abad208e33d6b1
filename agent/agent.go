package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modernice/goes/aggregate"
	"github.com/modernice/goes/event"
	"github.com/neoglyph/rippley/internal/unique"
)

// Aggregate is the name of the Agent aggregate.
const Aggregate = "rippley.agent"

var (
	// ErrEmptyName is returned when trying to create an Agent with an empty name.
	ErrEmptyName = errors.New("empty name")

	// ErrAlreadyCreated is returned when creating an Agent that was already created.
	ErrAlreadyCreated = errors.New("agent already created")

	// ErrNotCreated is returned when trying to use an Agent that wasn't created yet.
	ErrNotCreated = errors.New("agent not created")

	// ErrDeactivated is returned when trying to use an Agent that was deactivated.
	ErrDeactivated = errors.New("agent deactivated")

	// ErrNameTaken is returned when creating an Agent with a name that is
	// already used by another Agent.
	ErrNameTaken = errors.New("name already in use")
)

// A Repository persists Agents.
type Repository interface {
	// Save saves an Agent.
	Save(context.Context, *Agent) error

	// Fetch fetches the Agent with the given UUID.
	Fetch(context.Context, uuid.UUID) (*Agent, error)

	// Use fetches the Agent with the given UUID, calls the provided function
	// with the Agent as the argument and then saves the Agent. If the provided
	// function returns a non-nil error, the Agent is not saved and that error
	// is returned.
	Use(context.Context, uuid.UUID, func(*Agent) error) error

	// Delete deletes an Agent.
	Delete(context.Context, *Agent) error
}

// Agent is a Neo-Glyph agent.
type Agent struct {
	*aggregate.Base

	Name         string
	Type         string
	Config       map[string]string
	Capabilities []string
	Active       bool
}

// Create creates an Agent with the given name, type and configuration.
// Create(name, typ, config) is a shortcut for
//	a := New(uuid.New())
//	err := a.Create(name, typ, config)
func Create(name, typ string, config map[string]string) (*Agent, error) {
	return CreateWithID(uuid.New(), name, typ, config)
}

// CreateWithID does the same as Create, but accepts a custom UUID.
func CreateWithID(id uuid.UUID, name, typ string, config map[string]string) (*Agent, error) {
	a := New(id)
	if err := a.Create(name, typ, config); err != nil {
		return a, err
	}
	return a, nil
}

// New returns an uncreated Agent a. Call a.Create to create it.
func New(id uuid.UUID) *Agent {
	return &Agent{
		Base:         aggregate.New(Aggregate, id),
		Config:       make(map[string]string),
		Capabilities: make([]string, 0),
	}
}

// Create creates the Agent by giving it a name, a type and an initial
// configuration. An empty type defaults to "basic".
func (a *Agent) Create(name, typ string, config map[string]string) error {
	if a.Name != "" {
		return ErrAlreadyCreated
	}

	if name = strings.TrimSpace(name); name == "" {
		return ErrEmptyName
	}

	if typ = strings.TrimSpace(typ); typ == "" {
		typ = "basic"
	}

	aggregate.Next(a, Created, CreatedData{
		Name:   name,
		Type:   typ,
		Config: config,
	})

	return nil
}

func (a *Agent) create(evt event.Event) {
	data := evt.Data().(CreatedData)
	a.Name = data.Name
	a.Type = data.Type
	a.Active = true
	for k, v := range data.Config {
		a.Config[k] = v
	}
}

// Configure merges config into the configuration of the Agent.
func (a *Agent) Configure(config map[string]string) error {
	if err := a.checkActive(); err != nil {
		return err
	}

	if len(config) == 0 {
		return nil
	}

	aggregate.Next(a, Configured, ConfiguredData{Config: config})

	return nil
}

func (a *Agent) configure(evt event.Event) {
	data := evt.Data().(ConfiguredData)
	for k, v := range data.Config {
		a.Config[k] = v
	}
}

// Grant grants capabilities to the Agent. Capabilities the Agent already has
// are ignored.
func (a *Agent) Grant(capabilities ...string) error {
	if err := a.checkActive(); err != nil {
		return err
	}

	capabilities = unique.Strings(capabilities...)

	add := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		if !a.HasCapability(c) {
			add = append(add, c)
		}
	}

	if len(add) == 0 {
		return nil
	}

	aggregate.Next(a, CapabilitiesGranted, CapabilitiesGrantedData{Capabilities: add})

	return nil
}

func (a *Agent) grant(evt event.Event) {
	data := evt.Data().(CapabilitiesGrantedData)
	a.Capabilities = append(a.Capabilities, data.Capabilities...)
}

// HasCapability returns whether the Agent has the given capability.
func (a *Agent) HasCapability(name string) bool {
	for _, c := range a.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Deactivate deactivates the Agent. A deactivated Agent rejects further
// commands and its name becomes available again.
func (a *Agent) Deactivate() error {
	if err := a.checkActive(); err != nil {
		return err
	}

	aggregate.Next(a, Deactivated, DeactivatedData{})

	return nil
}

func (a *Agent) deactivate(event.Event) {
	a.Active = false
}

func (a *Agent) checkActive() error {
	if a.Name == "" {
		return ErrNotCreated
	}
	if !a.Active {
		return ErrDeactivated
	}
	return nil
}

// ApplyEvent applies aggregate events.
func (a *Agent) ApplyEvent(evt event.Event) {
	switch evt.Name() {
	case Created:
		a.create(evt)
	case Configured:
		a.configure(evt)
	case CapabilitiesGranted:
		a.grant(evt)
	case Deactivated:
		a.deactivate(evt)
	}
}

type goesRepository struct {
	repo aggregate.Repository
}

// GoesRepository returns a Repository that uses the provided aggregate
// repository under the hood.
func GoesRepository(repo aggregate.Repository) Repository {
	return &goesRepository{repo}
}

func (r *goesRepository) Save(ctx context.Context, a *Agent) error {
	return r.repo.Save(ctx, a)
}

func (r *goesRepository) Fetch(ctx context.Context, id uuid.UUID) (*Agent, error) {
	a := New(id)
	if err := r.repo.Fetch(ctx, a); err != nil {
		return a, fmt.Errorf("goes: %w", err)
	}
	return a, nil
}

func (r *goesRepository) Use(ctx context.Context, id uuid.UUID, fn func(*Agent) error) error {
	a, err := r.Fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch agent: %w", err)
	}
	if err := fn(a); err != nil {
		return err
	}
	if err := r.Save(ctx, a); err != nil {
		return fmt.Errorf("save agent: %w", err)
	}
	return nil
}

func (r *goesRepository) Delete(ctx context.Context, a *Agent) error {
	return r.repo.Delete(ctx, a)
}

type jsonAgent struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Config       map[string]string `json:"config"`
	Capabilities []string          `json:"capabilities"`
	Active       bool              `json:"active"`
}

func (a *Agent) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonAgent{
		ID:           a.ID,
		Name:         a.Name,
		Type:         a.Type,
		Config:       a.Config,
		Capabilities: a.Capabilities,
		Active:       a.Active,
	})
}

func (a *Agent) UnmarshalJSON(b []byte) error {
	var ja jsonAgent
	if err := json.Unmarshal(b, &ja); err != nil {
		return err
	}
	agent := New(ja.ID)
	agent.Name = ja.Name
	agent.Type = ja.Type
	agent.Active = ja.Active
	if ja.Config != nil {
		agent.Config = ja.Config
	}
	if ja.Capabilities != nil {
		agent.Capabilities = ja.Capabilities
	}
	*a = *agent
	return nil
}
