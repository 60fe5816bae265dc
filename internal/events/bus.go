package events

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	KindTradeStored       = "trade_stored"
	KindWhaleTrade        = "whale_trade"
	KindScoreCrossed      = "score_crossed"
	KindPriceSpike        = "price_spike"
	KindSettlementApplied = "settlement_applied"
)

// Event is one in-process notification. Exactly one payload field is set,
// matching Kind.
type Event struct {
	Kind       string
	At         time.Time
	Trade      *TradeEvent
	Score      *ScoreEvent
	Spike      *SpikeEvent
	Settlement *SettlementEvent
}

type TradeEvent struct {
	TradeID     string
	MarketID    string
	Maker       string
	Taker       string
	Side        string
	PriceCents  int
	AmountCents int64
	EventTime   time.Time
	IsWhale     bool
}

type ScoreEvent struct {
	Address   string
	Score     int
	PrevScore int
	Threshold int
	At        time.Time
}

type SpikeEvent struct {
	MarketID         string
	PriceBeforeCents int
	PriceAfterCents  int
	ChangeBps        int
	WindowEnd        time.Time
}

type SettlementEvent struct {
	MarketID     string
	SettlementID string
	WinningSide  string
	Addresses    int
}

// Bus fans events out to subscribers by kind. Sends never block: a slow
// subscriber loses events and the drop counter moves instead.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	logger *zap.Logger

	dropped uint64
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subs:   map[string][]chan Event{},
		logger: logger,
	}
}

// Subscribe returns a channel receiving events of the given kind.
func (b *Bus) Subscribe(kind string, buf int) <-chan Event {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], ch)
	b.mu.Unlock()
	return ch
}

func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.Kind] {
		select {
		case ch <- ev:
		default:
			// Drop when subscriber is slow; the bus must not block.
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

func (b *Bus) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return atomic.LoadUint64(&b.dropped)
}

// LogStats is meant to run on a ticker from main.
func (b *Bus) LogStats() {
	if b == nil || b.logger == nil {
		return
	}
	b.logger.Info("event bus stats", zap.Uint64("dropped", b.Dropped()))
}
