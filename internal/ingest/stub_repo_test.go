package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

// stubRepo covers the repository surface the ingestor and the aggregator
// touch. Anything else panics via the embedded nil interface.
type stubRepo struct {
	repository.Repository

	mu        sync.Mutex
	trades    map[string]models.Trade
	addresses map[string]*models.Address
	markets   map[string]*models.Market
	states    map[string]*models.SyncState
	ledger    map[string]bool
	anomalies []models.PriceAnomaly

	suspiciousMarks []suspiciousMark
	failInserts     bool
}

type suspiciousMark struct {
	marketID string
	from, to time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		trades:    map[string]models.Trade{},
		addresses: map[string]*models.Address{},
		markets:   map[string]*models.Market{},
		states:    map[string]*models.SyncState{},
		ledger:    map[string]bool{},
	}
}

func (s *stubRepo) InTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) GetSyncState(_ context.Context, service string) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[service]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *stubRepo) SaveSyncState(_ context.Context, state *models.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	s.states[state.Service] = &cp
	return nil
}

func (s *stubRepo) SaveSyncStateTx(ctx context.Context, _ *gorm.DB, state *models.SyncState) error {
	return s.SaveSyncState(ctx, state)
}

func (s *stubRepo) ExistingTradeIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := s.trades[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *stubRepo) InsertTradesTx(_ context.Context, _ *gorm.DB, items []models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInserts {
		return fmt.Errorf("disk full")
	}
	for _, tr := range items {
		if _, ok := s.trades[tr.TradeID]; ok {
			continue
		}
		s.trades[tr.TradeID] = tr
	}
	return nil
}

func (s *stubRepo) GetMarketByConditionID(_ context.Context, id string) (*models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *stubRepo) GetAddress(_ context.Context, addr string) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.addresses[addr]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *stubRepo) SaveAddress(_ context.Context, item *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.addresses[item.Address] = &cp
	return nil
}

func (s *stubRepo) InsertAddressSettlement(_ context.Context, item *models.AddressSettlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := item.Address + "|" + item.MarketID + "|" + item.SettlementID
	if s.ledger[key] {
		return false, nil
	}
	s.ledger[key] = true
	return true, nil
}

func (s *stubRepo) ListRecentAnomalies(_ context.Context, since time.Time) ([]models.PriceAnomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PriceAnomaly
	for _, a := range s.anomalies {
		if !a.WindowEnd.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubRepo) MarkTradesSuspicious(_ context.Context, marketID string, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspiciousMarks = append(s.suspiciousMarks, suspiciousMark{marketID: marketID, from: from, to: to})
	var n int64
	for id, tr := range s.trades {
		if tr.MarketID != marketID || tr.IsSuspicious {
			continue
		}
		if !tr.EventTime.Before(from) && !tr.EventTime.After(to) {
			tr.IsSuspicious = true
			s.trades[id] = tr
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) tradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

func (s *stubRepo) trade(id string) (models.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.trades[id]
	return tr, ok
}

func (s *stubRepo) address(addr string) *models.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addresses[addr]
}

func (s *stubRepo) state(service string) *models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[service]
}
