package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"polyscope/internal/models"
	"polyscope/internal/repository"
)

type stubRepo struct {
	repository.Repository

	upserted []models.AlertSubscription

	addresses     []models.Address
	addressParams []repository.ListAddressesParams
	marketParams  []repository.ListMarketsParams
}

func (s *stubRepo) UpsertSubscription(_ context.Context, item *models.AlertSubscription) error {
	s.upserted = append(s.upserted, *item)
	return nil
}

func newTestRouter(repo *stubRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := &SubscriptionHandler{Repo: repo}
	h.Register(engine)
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestUpsertSubscription(t *testing.T) {
	repo := &stubRepo{}
	engine := newTestRouter(repo)

	rec := postJSON(t, engine, "/api/v1/subscriptions", `{
		"user_id": "u1",
		"target_type": "address",
		"target_id": "0xABC",
		"alert_kinds": ["large_trade", "high_suspicion_address"]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upserted %d subscriptions, want 1", len(repo.upserted))
	}
	sub := repo.upserted[0]
	if sub.TargetType != models.SubscriptionTypeAddress || !sub.Active {
		t.Fatalf("subscription = %+v", sub)
	}
	var kinds []string
	if err := json.Unmarshal(sub.AlertKinds, &kinds); err != nil || len(kinds) != 2 {
		t.Fatalf("alert kinds = %s (err %v)", sub.AlertKinds, err)
	}
}

func TestUpsertSubscriptionRejectsActiveWithoutKinds(t *testing.T) {
	repo := &stubRepo{}
	engine := newTestRouter(repo)

	rec := postJSON(t, engine, "/api/v1/subscriptions", `{
		"user_id": "u1",
		"target_type": "address",
		"target_id": "0xABC",
		"alert_kinds": []
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(repo.upserted) != 0 {
		t.Fatal("invalid subscription was persisted")
	}
}

func TestUpsertSubscriptionRejectsBadTargetType(t *testing.T) {
	repo := &stubRepo{}
	engine := newTestRouter(repo)

	rec := postJSON(t, engine, "/api/v1/subscriptions", `{
		"user_id": "u1",
		"target_type": "token",
		"target_id": "0xABC",
		"alert_kinds": ["large_trade"]
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpsertSubscriptionRejectsUnknownKind(t *testing.T) {
	repo := &stubRepo{}
	engine := newTestRouter(repo)

	rec := postJSON(t, engine, "/api/v1/subscriptions", `{
		"user_id": "u1",
		"target_type": "market",
		"target_id": "m1",
		"alert_kinds": ["teleport"]
	}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpsertSubscriptionPausedWithoutKindsAllowed(t *testing.T) {
	repo := &stubRepo{}
	engine := newTestRouter(repo)

	rec := postJSON(t, engine, "/api/v1/subscriptions", `{
		"user_id": "u1",
		"target_type": "category",
		"target_id": "Politics",
		"alert_kinds": [],
		"active": false
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(repo.upserted) != 1 || repo.upserted[0].Active {
		t.Fatalf("upserted = %+v", repo.upserted)
	}
}
