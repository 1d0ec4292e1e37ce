package capabilities

import (
	"reflect"
	"testing"
	"testing/fstest"
)

func TestRegistry(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	models, err := r.ListProviderModels("anthropic")
	if err != nil || len(models) == 0 || models[0].ID != "claude-haiku-4-5" {
		t.Fatalf("anthropic models = %+v, %v; want yaml order", models, err)
	}

	caps, err := r.GetModelCapabilities("anthropic", "claude-sonnet-4-5")
	if err != nil || caps.MaxOutput != 16384 {
		t.Errorf("sonnet = %+v, %v", caps, err)
	}
	if _, err := r.GetModelCapabilities("anthropic", "claude-opus-9"); err == nil {
		t.Error("unknown model resolved exactly")
	}

	fallback, err := r.Resolve("anthropic", "claude-haiku-4-5-20991231")
	if err != nil || fallback.ID != "claude-haiku-4-5-20991231" || fallback.ContextWindow != 200000 {
		t.Errorf("fallback = %+v, %v", fallback, err)
	}
	if _, err := r.Resolve("openai", "gpt-5"); err == nil {
		t.Error("unknown provider resolved")
	}
}

func TestInputChars(t *testing.T) {
	tests := []struct {
		caps ModelCapabilities
		want int
	}{
		{ModelCapabilities{ContextWindow: 1000, MaxOutput: 200, CharsPerToken: 4}, 3200},
		{ModelCapabilities{ContextWindow: 1000, MaxOutput: 200}, 2400},
		{ModelCapabilities{ContextWindow: 100, MaxOutput: 200, CharsPerToken: 4}, 0},
	}
	for _, tt := range tests {
		if got := tt.caps.InputChars(); got != tt.want {
			t.Errorf("InputChars(%+v) = %d, want %d", tt.caps, got, tt.want)
		}
	}
}

func TestResolve_PrefersLongestPrefix(t *testing.T) {
	fsys := fstest.MapFS{
		"config/acme.yaml": {Data: []byte(`provider: acme
models:
  small:
    context_window: 1000
    max_output: 100
  small-long:
    context_window: 5000
    max_output: 100
`)},
		"config/zeta.yaml": {Data: []byte(`models:
  z1:
    context_window: 10
`)},
	}
	r, err := loadRegistry(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Providers(); !reflect.DeepEqual(got, []string{"acme", "zeta"}) {
		t.Errorf("Providers() = %v; provider name should default to the file name", got)
	}

	tests := []struct {
		model      string
		wantWindow int
	}{
		{"small", 1000},
		{"small-long", 5000},
		{"small-long-2026", 5000},
		{"small-2026", 1000},
		{"other", 1000},
	}
	for _, tt := range tests {
		caps, err := r.Resolve("acme", tt.model)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", tt.model, err)
		}
		if caps.ContextWindow != tt.wantWindow || caps.ID != tt.model {
			t.Errorf("Resolve(%s) = %+v, want window %d", tt.model, caps, tt.wantWindow)
		}
	}
}

func TestLoadRegistry_RejectsEmptyProvider(t *testing.T) {
	fsys := fstest.MapFS{"config/empty.yaml": {Data: []byte("provider: empty\n")}}
	if _, err := loadRegistry(fsys); err == nil {
		t.Error("provider without models loaded")
	}
}
