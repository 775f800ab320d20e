package collector

import (
	"context"
	"reflect"
	"testing"

	"github.com/newthinker/smacross/internal/core"
)

// mockCollector for testing
type mockCollector struct {
	name string
}

func (m *mockCollector) Name() string          { return m.name }
func (m *mockCollector) Init(cfg Config) error { return nil }
func (m *mockCollector) FetchHistory(ctx context.Context, q Query) ([]core.OHLCV, error) {
	return nil, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "yahoo"})

	c, ok := r.Get("yahoo")
	if !ok {
		t.Fatal("expected to find yahoo collector")
	}
	if c.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", c.Name())
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing collector lookup to fail")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "yahoo"})
	r.Register(&mockCollector{name: "csv"})
	r.Register(&mockCollector{name: "binance"})

	want := []string{"binance", "csv", "yahoo"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestQuery_HasRange(t *testing.T) {
	if (Query{Period: "ytd"}).HasRange() {
		t.Error("period-only query should not have a range")
	}
}
