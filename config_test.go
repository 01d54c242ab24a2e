package taskapi_test

import (
	"testing"
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/store/memory"
)

func TestNew_NormalizesZeroConcurrency(t *testing.T) {
	// A bare Config via WithConfig leaves Concurrency at zero; the gateway
	// must not hand that to the fan-out layers, where a zero errgroup
	// limit blocks forever.
	g, err := taskapi.New(
		taskapi.WithStore(memory.New()),
		taskapi.WithConfig(taskapi.Config{RequestTimeout: 5 * time.Second}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := taskapi.DefaultConfig().Concurrency
	if got := g.Config().Concurrency; got != want {
		t.Fatalf("Concurrency = %d, want %d", got, want)
	}
}

func TestNew_NegativeConcurrencyFallsBack(t *testing.T) {
	g, err := taskapi.New(
		taskapi.WithStore(memory.New()),
		taskapi.WithConcurrency(-1),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := g.Config().Concurrency; got < 1 {
		t.Fatalf("Concurrency = %d, want positive", got)
	}
}
