package agent

import (
	"sync"

	"github.com/google/uuid"
)

// BasicType is the agent type used when no Blueprint is registered for the
// requested type.
const BasicType = "basic"

// A Blueprint describes the initial shape of an agent type: the capabilities
// new Agents of that type are granted and the configuration defaults they
// start with.
type Blueprint struct {
	Type         string            `json:"type"`
	Capabilities []string          `json:"capabilities"`
	Defaults     map[string]string `json:"defaults"`
}

// BasicBlueprint returns the Blueprint that is used for unregistered agent
// types.
func BasicBlueprint() Blueprint {
	return Blueprint{
		Type:         BasicType,
		Capabilities: []string{"basic_response"},
	}
}

// A Factory creates Agents from registered Blueprints.
type Factory struct {
	mux        sync.RWMutex
	blueprints map[string]Blueprint
}

// NewFactory returns a Factory with the given Blueprints registered.
func NewFactory(blueprints ...Blueprint) *Factory {
	f := &Factory{blueprints: make(map[string]Blueprint)}
	for _, b := range blueprints {
		f.Register(b)
	}
	return f
}

// Register registers a Blueprint, replacing a previously registered Blueprint
// of the same type.
func (f *Factory) Register(b Blueprint) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.blueprints[b.Type] = b
}

// Blueprint returns the registered Blueprint for the given agent type, or
// false.
func (f *Factory) Blueprint(typ string) (Blueprint, bool) {
	f.mux.RLock()
	defer f.mux.RUnlock()
	b, ok := f.blueprints[typ]
	return b, ok
}

// Types returns the registered agent types.
func (f *Factory) Types() []string {
	f.mux.RLock()
	defer f.mux.RUnlock()
	types := make([]string, 0, len(f.blueprints))
	for typ := range f.blueprints {
		types = append(types, typ)
	}
	return types
}

// Make creates the Agent with the given UUID from the Blueprint registered for
// typ. If no Blueprint is registered for typ, the basic Blueprint is used
// instead. Blueprint defaults are applied before config, so config wins on
// conflicting keys.
func (f *Factory) Make(id uuid.UUID, name, typ string, config map[string]string) (*Agent, error) {
	b, ok := f.Blueprint(typ)
	if !ok {
		b = BasicBlueprint()
	}

	merged := make(map[string]string, len(b.Defaults)+len(config))
	for k, v := range b.Defaults {
		merged[k] = v
	}
	for k, v := range config {
		merged[k] = v
	}

	a, err := CreateWithID(id, name, b.Type, merged)
	if err != nil {
		return a, err
	}

	if len(b.Capabilities) > 0 {
		if err := a.Grant(b.Capabilities...); err != nil {
			return a, err
		}
	}

	return a, nil
}
