package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

type stubRepo struct {
	repository.Repository

	mu          sync.Mutex
	states      map[string]*models.SyncState
	markets     map[string]models.Market
	points      map[string]models.MarketPricePoint
	addresses   map[string]*models.Address
	tradeRows   map[string][]repository.TradeAddressRow
	ledger      map[string]struct{}
	failUpserts bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		states:    map[string]*models.SyncState{},
		markets:   map[string]models.Market{},
		points:    map[string]models.MarketPricePoint{},
		addresses: map[string]*models.Address{},
		tradeRows: map[string][]repository.TradeAddressRow{},
		ledger:    map[string]struct{}{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
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

func (s *stubRepo) UpsertMarketsTx(_ context.Context, _ *gorm.DB, items []models.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpserts {
		return fmt.Errorf("upsert failed")
	}
	for _, item := range items {
		s.markets[item.ConditionID] = item
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
	cp := m
	return &cp, nil
}

func (s *stubRepo) MarkMarketResolved(_ context.Context, conditionID, winningSide string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[conditionID]
	if !ok {
		m = models.Market{ConditionID: conditionID}
	}
	m.Resolved = true
	side := winningSide
	m.WinningSide = &side
	s.markets[conditionID] = m
	return nil
}

func (s *stubRepo) UpsertPricePoints(_ context.Context, items []models.MarketPricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		key := fmt.Sprintf("%s|%d", item.MarketID, item.SampledAt.UnixNano())
		s.points[key] = item
	}
	return nil
}

func (s *stubRepo) ListTradeAddressesByMarket(_ context.Context, marketID string) ([]repository.TradeAddressRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tradeRows[marketID], nil
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
	key := fmt.Sprintf("%s|%s|%s", item.Address, item.MarketID, item.SettlementID)
	if _, ok := s.ledger[key]; ok {
		return false, nil
	}
	s.ledger[key] = struct{}{}
	return true, nil
}

func (s *stubRepo) AddressTradeStats(_ context.Context, _ string) (repository.AddressTradeStats, error) {
	return repository.AddressTradeStats{}, nil
}

func (s *stubRepo) PopulationAvgTradeCents(_ context.Context) (int64, error) {
	return 0, nil
}

func (s *stubRepo) state(service string) *models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[service]
}

func (s *stubRepo) market(id string) (models.Market, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	return m, ok
}

func (s *stubRepo) address(addr string) *models.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addresses[addr]
}

func (s *stubRepo) marketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markets)
}

func (s *stubRepo) pointCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

func seedTime() time.Time {
	return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
}
