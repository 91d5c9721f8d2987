package events

import (
	"testing"
	"time"
)

func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := NewBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventTradeFilled, func(e Event) { got <- e })

	bus.PublishTradeFilled("PI_XBTUSD", "buy", "mkt", 1, 100)

	select {
	case e := <-got:
		if e.Type != EventTradeFilled {
			t.Errorf("type = %s, want %s", e.Type, EventTradeFilled)
		}
		if e.Data["symbol"] != "PI_XBTUSD" || e.Data["price"] != 100.0 {
			t.Errorf("data = %v", e.Data)
		}
		if e.Timestamp.IsZero() {
			t.Error("timestamp not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never called")
	}
}

func TestSubscriberOnlySeesItsType(t *testing.T) {
	bus := NewBus()
	fills := make(chan Event, 1)
	bus.Subscribe(EventTradeFilled, func(e Event) { fills <- e })

	bus.PublishOrderRejected("PI_XBTUSD", "buy", "low confidence", 1)

	select {
	case <-fills:
		t.Error("fill subscriber received a rejection event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := NewBus()
	all := make(chan Event, 2)
	bus.SubscribeAll(func(e Event) { all <- e })

	bus.PublishTradeFilled("PI_XBTUSD", "buy", "mkt", 1, 100)
	bus.PublishOrderRejected("PI_XBTUSD", "sell", "limit", 2)

	seen := map[EventType]bool{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-all:
			seen[e.Type] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	if !seen[EventTradeFilled] || !seen[EventOrderRejected] {
		t.Errorf("seen = %v", seen)
	}
}
