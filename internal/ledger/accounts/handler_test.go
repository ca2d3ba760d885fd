package accounts

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

func newTestRouter(t *testing.T) (chi.Router, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	service := NewService(repo, &recordingAudit{})
	handler := NewHandler(slog.Default(), service)

	r := chi.NewRouter()
	r.Use(shared.RequireTenant)
	r.Route("/accounts", handler.MountRoutes)
	return r, repo
}

func doRequest(t *testing.T, router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(shared.TenantHeader, "1")
	req.Header.Set(shared.ActorHeader, "tester")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlerCreateAccount(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPost, "/accounts",
		`{"code":"1000","name":"Cash","type":"ASSET","subType":"CASH"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var account Account
	if err := json.Unmarshal(rr.Body.Bytes(), &account); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if account.Code != "1000" || !account.IsActive {
		t.Fatalf("unexpected account %+v", account)
	}
	if account.NormalBalance() != SideDebit {
		t.Fatalf("asset account should be debit-normal")
	}
}

func TestHandlerCreateRejectsUnknownType(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPost, "/accounts",
		`{"code":"9000","name":"Mystery","type":"SUSPENSE"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHandlerDuplicateCodeConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	first := doRequest(t, router, http.MethodPost, "/accounts",
		`{"code":"1000","name":"Cash","type":"ASSET"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", first.Code)
	}
	second := doRequest(t, router, http.MethodPost, "/accounts",
		`{"code":"1000","name":"Cash Again","type":"ASSET"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate code, got %d", second.Code)
	}
}

func TestHandlerRequiresTenantHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without tenant header, got %d", rr.Code)
	}
}

func TestHandlerGetNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doRequest(t, router, http.MethodGet, "/accounts/42", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHandlerDeactivate(t *testing.T) {
	router, repo := newTestRouter(t)

	created := doRequest(t, router, http.MethodPost, "/accounts",
		`{"code":"5000","name":"COGS","type":"EXPENSE"}`)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", created.Code)
	}
	rr := doRequest(t, router, http.MethodPatch, "/accounts/1", `{"isActive":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.accounts[1].IsActive {
		t.Fatal("account should be inactive after patch")
	}
}
