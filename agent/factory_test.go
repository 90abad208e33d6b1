package agent_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/neoglyph/rippley/agent"
)

func TestFactory_Make(t *testing.T) {
	f := agent.NewFactory(agent.Blueprint{
		Type:         "glyph",
		Capabilities: []string{"render", "compose"},
		Defaults:     map[string]string{"mode": "draft", "lang": "en"},
	})

	a, err := f.Make(uuid.New(), "scribe", "glyph", map[string]string{"mode": "final"})
	if err != nil {
		t.Fatalf("Make failed with %q", err)
	}

	if a.Type != "glyph" {
		t.Fatalf("Type should be %q; is %q", "glyph", a.Type)
	}

	wantConfig := map[string]string{"mode": "final", "lang": "en"}
	if !cmp.Equal(wantConfig, a.Config) {
		t.Fatalf("Config differs:\n\n%s", cmp.Diff(wantConfig, a.Config))
	}

	wantCaps := []string{"render", "compose"}
	if !cmp.Equal(wantCaps, a.Capabilities) {
		t.Fatalf("Capabilities differ:\n\n%s", cmp.Diff(wantCaps, a.Capabilities))
	}
}

func TestFactory_Make_unknownType(t *testing.T) {
	f := agent.NewFactory()

	a, err := f.Make(uuid.New(), "scribe", "does-not-exist", nil)
	if err != nil {
		t.Fatalf("Make failed with %q", err)
	}

	if a.Type != agent.BasicType {
		t.Fatalf("Type should fall back to %q; is %q", agent.BasicType, a.Type)
	}

	if !a.HasCapability("basic_response") {
		t.Fatalf("a basic Agent should have the %q capability", "basic_response")
	}
}

func TestFactory_Register_replace(t *testing.T) {
	f := agent.NewFactory(agent.Blueprint{Type: "glyph", Capabilities: []string{"render"}})
	f.Register(agent.Blueprint{Type: "glyph", Capabilities: []string{"compose"}})

	b, ok := f.Blueprint("glyph")
	if !ok {
		t.Fatalf("Blueprint(%q) returned %v", "glyph", false)
	}

	want := []string{"compose"}
	if !cmp.Equal(want, b.Capabilities) {
		t.Fatalf("Capabilities differ:\n\n%s", cmp.Diff(want, b.Capabilities))
	}
}

func TestFactory_Types(t *testing.T) {
	f := agent.NewFactory(
		agent.Blueprint{Type: "glyph"},
		agent.Blueprint{Type: "basic"},
	)

	types := f.Types()
	if len(types) != 2 {
		t.Fatalf("Types should return 2 types; got %v", types)
	}
}
