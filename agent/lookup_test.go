package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modernice/goes/aggregate/repository"
	"github.com/modernice/goes/event/eventbus"
	"github.com/modernice/goes/event/eventstore"
	"github.com/neoglyph/rippley/agent"
)

func TestLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ebus := eventbus.New()
	estore := eventstore.WithBus(eventstore.New(), ebus)
	repo := agent.GoesRepository(repository.New(estore))

	lookup := agent.NewLookup()

	errs, err := lookup.Project(ctx, ebus, estore)
	if err != nil {
		t.Fatalf("run lookup: %v", err)
	}
	go func() {
		for err := range errs {
			panic(err)
		}
	}()

	if _, ok := lookup.Name("scribe"); ok {
		t.Fatalf("Name(%q) should return %v", "scribe", false)
	}

	a, err := agent.Create("scribe", "glyph", nil)
	if err != nil {
		t.Fatalf("create Agent: %v", err)
	}
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("save Agent: %v", err)
	}

	<-time.After(50 * time.Millisecond)

	id, ok := lookup.Name("scribe")
	if !ok {
		t.Fatalf("Name(%q) returned %v", "scribe", false)
	}

	if id == uuid.Nil {
		t.Fatalf("ID should be non-nil")
	}
}

func TestLookup_deactivated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ebus := eventbus.New()
	estore := eventstore.WithBus(eventstore.New(), ebus)
	repo := agent.GoesRepository(repository.New(estore))

	lookup := agent.NewLookup()

	errs, err := lookup.Project(ctx, ebus, estore)
	if err != nil {
		t.Fatalf("run lookup: %v", err)
	}
	go func() {
		for err := range errs {
			panic(err)
		}
	}()

	a, err := agent.Create("scribe", "glyph", nil)
	if err != nil {
		t.Fatalf("create Agent: %v", err)
	}
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("save Agent: %v", err)
	}

	<-time.After(50 * time.Millisecond)

	if _, ok := lookup.Name("scribe"); !ok {
		t.Fatalf("Name(%q) returned %v", "scribe", false)
	}

	if err := repo.Use(ctx, a.ID, func(a *agent.Agent) error {
		return a.Deactivate()
	}); err != nil {
		t.Fatalf("deactivate Agent: %v", err)
	}

	<-time.After(50 * time.Millisecond)

	if _, ok := lookup.Name("scribe"); ok {
		t.Fatalf("Name(%q) should return %v after deactivation", "scribe", false)
	}
}
