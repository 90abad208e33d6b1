package agent_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/modernice/goes/test"
	"github.com/neoglyph/rippley/agent"
)

func TestCreate_emptyName(t *testing.T) {
	names := []string{"", " "}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			a, err := agent.Create(name, "basic", nil)
			if !errors.Is(err, agent.ErrEmptyName) {
				t.Fatalf("Create should fail with %q; got %q", agent.ErrEmptyName, err)
			}

			if a.Name != "" {
				t.Fatalf("Name should be %q; is %q", "", a.Name)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	a, err := agent.Create("scribe", "glyph", map[string]string{"mode": "draft"})
	if err != nil {
		t.Fatalf("Create failed with %q", err)
	}

	if a.Name != "scribe" {
		t.Fatalf("Name should be %q; is %q", "scribe", a.Name)
	}

	if a.Type != "glyph" {
		t.Fatalf("Type should be %q; is %q", "glyph", a.Type)
	}

	if !a.Active {
		t.Fatalf("a freshly created Agent should be active")
	}

	if a.Config["mode"] != "draft" {
		t.Fatalf("Config[%q] should be %q; is %q", "mode", "draft", a.Config["mode"])
	}

	test.Change(t, a, agent.Created, test.EventData(agent.CreatedData{
		Name:   "scribe",
		Type:   "glyph",
		Config: map[string]string{"mode": "draft"},
	}))
}

func TestCreate_alreadyCreated(t *testing.T) {
	a, err := agent.Create("scribe", "glyph", nil)
	if err != nil {
		t.Fatalf("Create failed with %q", err)
	}

	if err := a.Create("scribe", "glyph", nil); !errors.Is(err, agent.ErrAlreadyCreated) {
		t.Fatalf("second Create should fail with %q; got %q", agent.ErrAlreadyCreated, err)
	}
}

func TestCreate_defaultType(t *testing.T) {
	a, err := agent.Create("scribe", " ", nil)
	if err != nil {
		t.Fatalf("Create failed with %q", err)
	}

	if a.Type != agent.BasicType {
		t.Fatalf("Type should default to %q; is %q", agent.BasicType, a.Type)
	}
}

func TestAgent_Configure(t *testing.T) {
	a, _ := agent.Create("scribe", "glyph", map[string]string{"mode": "draft"})

	if err := a.Configure(map[string]string{"mode": "final", "lang": "en"}); err != nil {
		t.Fatalf("Configure failed with %q", err)
	}

	want := map[string]string{"mode": "final", "lang": "en"}
	if !cmp.Equal(want, a.Config) {
		t.Fatalf("Config differs:\n\n%s", cmp.Diff(want, a.Config))
	}

	test.Change(t, a, agent.Configured, test.EventData(agent.ConfiguredData{
		Config: map[string]string{"mode": "final", "lang": "en"},
	}))
}

func TestAgent_Configure_notCreated(t *testing.T) {
	a := agent.New(uuid.New())

	if err := a.Configure(map[string]string{"mode": "draft"}); !errors.Is(err, agent.ErrNotCreated) {
		t.Fatalf("Configure should fail with %q; got %q", agent.ErrNotCreated, err)
	}
}

func TestAgent_Grant(t *testing.T) {
	a, _ := agent.Create("scribe", "glyph", nil)

	if err := a.Grant("render", "render", "compose"); err != nil {
		t.Fatalf("Grant failed with %q", err)
	}

	if err := a.Grant("render"); err != nil {
		t.Fatalf("Grant failed with %q", err)
	}

	want := []string{"render", "compose"}
	if !cmp.Equal(want, a.Capabilities) {
		t.Fatalf("Capabilities differ:\n\n%s", cmp.Diff(want, a.Capabilities))
	}

	test.Change(t, a, agent.CapabilitiesGranted, test.EventData(agent.CapabilitiesGrantedData{
		Capabilities: []string{"render", "compose"},
	}))
}

func TestAgent_Deactivate(t *testing.T) {
	a, _ := agent.Create("scribe", "glyph", nil)

	if err := a.Deactivate(); err != nil {
		t.Fatalf("Deactivate failed with %q", err)
	}

	if a.Active {
		t.Fatalf("a deactivated Agent should not be active")
	}

	if err := a.Deactivate(); !errors.Is(err, agent.ErrDeactivated) {
		t.Fatalf("second Deactivate should fail with %q; got %q", agent.ErrDeactivated, err)
	}

	if err := a.Configure(map[string]string{"mode": "draft"}); !errors.Is(err, agent.ErrDeactivated) {
		t.Fatalf("Configure should fail with %q; got %q", agent.ErrDeactivated, err)
	}

	test.Change(t, a, agent.Deactivated, test.EventData(agent.DeactivatedData{}))
}

func TestAgent_JSON(t *testing.T) {
	a, _ := agent.Create("scribe", "glyph", map[string]string{"mode": "draft"})
	a.Grant("render")

	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal Agent: %v", err)
	}

	var decoded agent.Agent
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal Agent: %v", err)
	}

	if decoded.ID != a.ID {
		t.Errorf("ID should be %q; is %q", a.ID, decoded.ID)
	}

	if decoded.Name != a.Name || decoded.Type != a.Type || decoded.Active != a.Active {
		t.Errorf("decoded Agent differs from original: %+v", decoded)
	}

	if !cmp.Equal(a.Config, decoded.Config) {
		t.Errorf("Config differs:\n\n%s", cmp.Diff(a.Config, decoded.Config))
	}

	if !cmp.Equal(a.Capabilities, decoded.Capabilities) {
		t.Errorf("Capabilities differ:\n\n%s", cmp.Diff(a.Capabilities, decoded.Capabilities))
	}
}
