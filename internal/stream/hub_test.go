package stream

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"kraken-trader/internal/models"
)

func TestHubDeliversTicksInOrder(t *testing.T) {
	hub := NewHub(16, zerolog.Nop())

	received := make(chan models.Tick, 16)
	hub.AddConsumer(func(ctx context.Context, tick models.Tick) {
		received <- tick
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)

	for i := 0; i < 5; i++ {
		hub.Offer(models.Tick{Symbol: "PI_XBTUSD", Price: float64(100 + i)})
	}

	for i := 0; i < 5; i++ {
		select {
		case tick := <-received:
			if tick.Price != float64(100+i) {
				t.Fatalf("tick %d price = %v, want %v", i, tick.Price, 100+i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for tick %d", i)
		}
	}
}

func TestHubFanOutToAllConsumers(t *testing.T) {
	hub := NewHub(16, zerolog.Nop())

	first := make(chan models.Tick, 1)
	second := make(chan models.Tick, 1)
	hub.AddConsumer(func(ctx context.Context, tick models.Tick) { first <- tick })
	hub.AddConsumer(func(ctx context.Context, tick models.Tick) { second <- tick })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)

	hub.Offer(models.Tick{Symbol: "PI_XBTUSD", Price: 42})

	for name, ch := range map[string]chan models.Tick{"first": first, "second": second} {
		select {
		case tick := <-ch:
			if tick.Price != 42 {
				t.Errorf("%s consumer price = %v, want 42", name, tick.Price)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s consumer never received the tick", name)
		}
	}
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	// Never started: the queue only fills.
	hub := NewHub(2, zerolog.Nop())

	for i := 0; i < 5; i++ {
		hub.Offer(models.Tick{Symbol: "PI_XBTUSD", Price: float64(i)})
	}

	if got := hub.Dropped(); got != 3 {
		t.Errorf("dropped = %d, want 3", got)
	}
}

func TestHubStopsWithContext(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		hub.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not exit on context cancel")
	}
}
