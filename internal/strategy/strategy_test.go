package strategy

import (
	"testing"

	"github.com/mchia/Backtest-Tool/internal/domain"
)

// stubStrategy is a minimal Strategy implementation used in registry tests.
type stubStrategy struct {
	name string
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) MinBars() int { return 1 }
func (s *stubStrategy) Evaluate(_ []domain.Bar) (domain.SignalType, error) {
	return domain.Hold, nil
}

func stubFactory(name string) Factory {
	return func(_ Params) (Strategy, error) {
		return &stubStrategy{name: name}, nil
	}
}

func TestRegistryBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("test-strategy", stubFactory("test-strategy"))

	got, err := r.Build("test-strategy", nil)
	if err != nil {
		t.Fatalf("Build returned error for registered strategy: %v", err)
	}
	if got.Name() != "test-strategy" {
		t.Errorf("Build returned strategy with Name() = %q, want %q", got.Name(), "test-strategy")
	}
}

func TestRegistryBuild_NotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Build("nonexistent", nil); err == nil {
		t.Error("Build succeeded for unregistered strategy")
	}
	if r.Has("nonexistent") {
		t.Error("Has returned true for unregistered strategy")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register("beta", stubFactory("beta"))
	r.Register("alpha", stubFactory("alpha"))

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}
	// List returns sorted names.
	if names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List returned %v, want [alpha beta]", names)
	}
}

func TestParamsGet(t *testing.T) {
	p := Params{"period": 21}
	if got := p.Get("period", 14); got != 21 {
		t.Errorf("Get(period) = %v, want 21", got)
	}
	if got := p.Get("missing", 14); got != 14 {
		t.Errorf("Get(missing) = %v, want default 14", got)
	}
}
