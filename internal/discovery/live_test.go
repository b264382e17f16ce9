package discovery

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gchickering21/downballot/internal/config"
	"github.com/gchickering21/downballot/internal/logging"
	"github.com/gchickering21/downballot/internal/sources"
)

// TestDiscoverLive hits the real archive index. Opt-in only.
func TestDiscoverLive(t *testing.T) {
	if os.Getenv("DOWNBALLOT_LIVE_TESTS") != "1" {
		t.Skip("set DOWNBALLOT_LIVE_TESTS=1 to run live-network tests")
	}

	svc := NewService(config.DefaultConfig().Transport,
		logging.NewLogger(logging.Config{Level: logging.ErrorLevel}))
	registry := sources.NewRegistry(nil)
	profile, err := registry.Get(sources.SourceNCSBE)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	universe, err := svc.Discover(ctx, profile, "NC")
	if err != nil {
		t.Fatal(err)
	}
	if len(universe.Events) == 0 {
		t.Fatal("live index returned no archive events")
	}
	for i := 1; i < len(universe.Events); i++ {
		if universe.Events[i].Date.Before(universe.Events[i-1].Date) {
			t.Fatalf("events out of order at %d: %s after %s",
				i, universe.Events[i].Date, universe.Events[i-1].Date)
		}
	}
}
