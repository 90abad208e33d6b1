package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/modernice/goes/event"
	"github.com/modernice/goes/projection"
	"github.com/modernice/goes/projection/schedule"
)

// Lookup provides UUID lookup for active Agents.
//
// Use NewLookup to create a Lookup.
type Lookup struct {
	mux      sync.RWMutex
	nameToID map[string]uuid.UUID
	idToName map[uuid.UUID]string
}

// NewLookup returns a new Lookup.
func NewLookup() *Lookup {
	return &Lookup{
		nameToID: make(map[string]uuid.UUID),
		idToName: make(map[uuid.UUID]string),
	}
}

// Name returns the UUID of the active Agent with the given name, or false.
func (l *Lookup) Name(name string) (uuid.UUID, bool) {
	l.mux.RLock()
	defer l.mux.RUnlock()
	id, ok := l.nameToID[name]
	return id, ok
}

// Names returns the names of all active Agents.
func (l *Lookup) Names() []string {
	l.mux.RLock()
	defer l.mux.RUnlock()
	names := make([]string, 0, len(l.nameToID))
	for name := range l.nameToID {
		names = append(names, name)
	}
	return names
}

// Project projects the Lookup in a new goroutine and returns a channel of
// asynchronous errors.
func (l *Lookup) Project(ctx context.Context, bus event.Bus, store event.Store, opts ...schedule.ContinuousOption) (<-chan error, error) {
	schedule := schedule.Continuously(bus, store, Events[:], opts...)

	errs, err := schedule.Subscribe(ctx, l.applyJob)
	if err != nil {
		return nil, fmt.Errorf("subscribe to projection schedule: %w", err)
	}

	go schedule.Trigger(ctx)

	return errs, nil
}

func (l *Lookup) applyJob(job projection.Job) error {
	return job.Apply(job, l)
}

// ApplyEvent applies events.
func (l *Lookup) ApplyEvent(evt event.Event) {
	switch evt.Name() {
	case Created:
		l.created(evt)
	case Deactivated:
		l.deactivated(evt)
	}
}

func (l *Lookup) created(evt event.Event) {
	data := evt.Data().(CreatedData)
	id, _, _ := evt.Aggregate()

	l.mux.Lock()
	defer l.mux.Unlock()
	l.nameToID[data.Name] = id
	l.idToName[id] = data.Name
}

func (l *Lookup) deactivated(evt event.Event) {
	id, _, _ := evt.Aggregate()

	l.mux.Lock()
	defer l.mux.Unlock()
	if name, ok := l.idToName[id]; ok {
		delete(l.nameToID, name)
		delete(l.idToName, id)
	}
}
