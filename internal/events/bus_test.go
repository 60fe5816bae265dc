package events

import "testing"

func TestBusFanout(t *testing.T) {
	bus := NewBus(nil)
	a := bus.Subscribe(KindWhaleTrade, 4)
	b := bus.Subscribe(KindWhaleTrade, 4)
	other := bus.Subscribe(KindPriceSpike, 4)

	bus.Publish(Event{Kind: KindWhaleTrade, Trade: &TradeEvent{TradeID: "t1"}})

	ev := <-a
	if ev.Trade == nil || ev.Trade.TradeID != "t1" {
		t.Fatalf("subscriber a got %+v", ev)
	}
	ev = <-b
	if ev.Trade == nil || ev.Trade.TradeID != "t1" {
		t.Fatalf("subscriber b got %+v", ev)
	}
	select {
	case ev := <-other:
		t.Fatalf("price_spike subscriber received %+v", ev)
	default:
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(nil)
	_ = bus.Subscribe(KindTradeStored, 1)

	bus.Publish(Event{Kind: KindTradeStored})
	bus.Publish(Event{Kind: KindTradeStored})
	bus.Publish(Event{Kind: KindTradeStored})

	if got := bus.Dropped(); got != 2 {
		t.Fatalf("dropped = %d, want 2", got)
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(nil)
	bus.Publish(Event{Kind: KindScoreCrossed})
	if got := bus.Dropped(); got != 0 {
		t.Fatalf("dropped = %d, want 0", got)
	}
}
