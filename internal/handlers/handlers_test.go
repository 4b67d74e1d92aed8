package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orus-risk/internal/middleware"
	"orus-risk/internal/models"
	"orus-risk/internal/repositories"
	"orus-risk/internal/services/risk"
	"orus-risk/internal/utils"
	"orus-risk/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type MockRiskService struct{ mock.Mock }

func (m *MockRiskService) ScoreTransaction(ctx context.Context, actorID string, desc risk.TransactionDescriptor) (*risk.RiskVerdict, error) {
	args := m.Called(ctx, actorID, desc)
	verdict, _ := args.Get(0).(*risk.RiskVerdict)
	return verdict, args.Error(1)
}

type MockBlacklistStore struct{ mock.Mock }

func (m *MockBlacklistStore) Add(ctx context.Context, ip, reason, addedBy string) (*models.BlacklistEntry, error) {
	args := m.Called(ctx, ip, reason, addedBy)
	entry, _ := args.Get(0).(*models.BlacklistEntry)
	return entry, args.Error(1)
}

func (m *MockBlacklistStore) Remove(ctx context.Context, ip string) error {
	return m.Called(ctx, ip).Error(0)
}

func (m *MockBlacklistStore) List(ctx context.Context, limit, offset int) ([]models.BlacklistEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	entries, _ := args.Get(0).([]models.BlacklistEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

type MockFraudCheckReader struct{ mock.Mock }

func (m *MockFraudCheckReader) Get(ctx context.Context, id string) (*models.FraudCheck, error) {
	args := m.Called(ctx, id)
	check, _ := args.Get(0).(*models.FraudCheck)
	return check, args.Error(1)
}

func (m *MockFraudCheckReader) List(ctx context.Context, filter models.FraudCheckFilter, limit, offset int) ([]models.FraudCheck, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	checks, _ := args.Get(0).([]models.FraudCheck)
	return checks, args.Get(1).(int64), args.Error(2)
}

func (m *MockFraudCheckReader) Stats(ctx context.Context, from, to time.Time) (*models.FraudCheckStats, error) {
	args := m.Called(ctx, from, to)
	stats, _ := args.Get(0).(*models.FraudCheckStats)
	return stats, args.Error(1)
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(testSecret, models.UserClaims{Email: role + "@orus", Role: role}, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestRiskHandler_ScoreTransaction(t *testing.T) {
	svc := new(MockRiskService)
	app := fiber.New()
	auth := middleware.NewAuthMiddleware(testSecret)
	app.Post("/score", auth.Handler, middleware.HasPermission(models.PermissionRiskScore), NewRiskHandler(svc).ScoreTransaction)

	verdict := &risk.RiskVerdict{
		ID:             "v-1",
		ActorID:        "actor-1",
		OverallScore:   68,
		RiskLevel:      risk.RiskLevelHigh,
		Recommendation: risk.RecommendationReview,
	}
	body := map[string]interface{}{
		"actor_id":       "actor-1",
		"amount":         1500000,
		"payment_method": "Bank_Transfer",
		"ip_address":     "198.51.100.7",
	}

	t.Run("scores", func(t *testing.T) {
		svc.On("ScoreTransaction", mock.Anything, "actor-1", mock.MatchedBy(func(d risk.TransactionDescriptor) bool {
			return d.PaymentMethod == risk.PaymentMethodBankTransfer && d.Amount == 1500000
		})).Return(verdict, nil).Once()

		resp, out := doJSON(t, app, "POST", "/score", bearer(t, models.RoleService), body)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, risk.RecommendationReview.Description(), out["message"])
		data := out["data"].(map[string]interface{})
		assert.Equal(t, "HIGH", data["risk_level"])
		assert.Equal(t, float64(68), data["overall_score"])
	})

	t.Run("validation errors", func(t *testing.T) {
		svc.On("ScoreTransaction", mock.Anything, "actor-1", mock.Anything).Return(nil, &risk.InvalidDescriptorError{
			Errors: []validation.ValidationError{{Field: "amount", Message: "must be greater than zero"}},
		}).Once()

		resp, out := doJSON(t, app, "POST", "/score", bearer(t, models.RoleService), body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		errs := out["errors"].([]interface{})
		require.Len(t, errs, 1)
		assert.Equal(t, "amount", errs[0].(map[string]interface{})["field"])
	})

	t.Run("unexpected error", func(t *testing.T) {
		svc.On("ScoreTransaction", mock.Anything, "actor-1", mock.Anything).Return(nil, errors.New("boom")).Once()
		resp, _ := doJSON(t, app, "POST", "/score", bearer(t, models.RoleService), body)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/score", "", body)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	svc.AssertExpectations(t)
}

func TestBlacklistHandler(t *testing.T) {
	store := new(MockBlacklistStore)
	h := NewBlacklistHandler(store)
	app := fiber.New()
	auth := middleware.NewAuthMiddleware(testSecret)
	admin := app.Group("/blacklist", auth.Handler, middleware.AdminAuthMiddleware)
	admin.Post("/", h.AddEntry)
	admin.Delete("/:ip", h.RemoveEntry)
	admin.Get("/", h.ListEntries)

	adminAuth := bearer(t, models.RoleAdmin)

	store.On("Add", mock.Anything, "203.0.113.9", "card testing", "admin@orus").
		Return(&models.BlacklistEntry{IPAddress: "203.0.113.9", Reason: "card testing", AddedBy: "admin@orus"}, nil).Once()
	resp, out := doJSON(t, app, "POST", "/blacklist", adminAuth, map[string]string{"ip_address": "203.0.113.9", "reason": "card testing"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "admin@orus", out["data"].(map[string]interface{})["added_by"])

	store.On("Add", mock.Anything, "nope", "", "admin@orus").Return(nil, repositories.ErrInvalidBlacklistEntry).Once()
	resp, _ = doJSON(t, app, "POST", "/blacklist", adminAuth, map[string]string{"ip_address": "nope"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	store.On("Remove", mock.Anything, "203.0.113.9").Return(nil).Once()
	resp, _ = doJSON(t, app, "DELETE", "/blacklist/203.0.113.9", adminAuth, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	store.On("Remove", mock.Anything, "203.0.113.10").Return(repositories.ErrBlacklistEntryNotFound).Once()
	resp, _ = doJSON(t, app, "DELETE", "/blacklist/203.0.113.10", adminAuth, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	store.On("List", mock.Anything, 2, 2).Return([]models.BlacklistEntry{{IPAddress: "203.0.113.1"}}, int64(3), nil).Once()
	resp, out = doJSON(t, app, "GET", "/blacklist?page=2&limit=2", adminAuth, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), out["meta"].(map[string]interface{})["total_pages"])

	resp, _ = doJSON(t, app, "GET", "/blacklist", bearer(t, models.RoleService), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	store.AssertExpectations(t)
}

func TestAnalyticsHandler(t *testing.T) {
	reader := new(MockFraudCheckReader)
	h := NewAnalyticsHandler(reader)
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	app := fiber.New()
	app.Get("/fraud-checks", h.ListFraudChecks)
	app.Get("/fraud-checks/stats", h.Stats)

	reader.On("List", mock.Anything, models.FraudCheckFilter{ActorID: "a", RiskLevel: "HIGH"}, 20, 0).
		Return([]models.FraudCheck{{ID: "c1"}}, int64(1), nil).Once()
	resp, out := doJSON(t, app, "GET", "/fraud-checks?actor_id=a&level=HIGH", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, out["data"], 1)

	resp, _ = doJSON(t, app, "GET", "/fraud-checks?level=SEVERE", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, "GET", "/fraud-checks?from=yesterday", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	reader.On("Stats", mock.Anything, now.Add(-defaultStatsWindow), now).
		Return(&models.FraudCheckStats{Total: 4, AverageScore: 31.5}, nil).Once()
	resp, out = doJSON(t, app, "GET", "/fraud-checks/stats", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), out["data"].(map[string]interface{})["total"])

	resp, _ = doJSON(t, app, "GET", "/fraud-checks/stats?from=2024-03-02T00:00:00Z&to=2024-03-01T00:00:00Z", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	reader.On("Stats", mock.Anything, mock.Anything, mock.Anything).Return(nil, repositories.ErrDatabaseOperation).Once()
	resp, _ = doJSON(t, app, "GET", "/fraud-checks/stats?from=2024-03-01T00:00:00Z&to=2024-03-02T00:00:00Z", "", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	reader.AssertExpectations(t)
}

func TestAnalyticsHandler_GetFraudCheck(t *testing.T) {
	reader := new(MockFraudCheckReader)
	app := fiber.New()
	app.Get("/fraud-checks/:id", NewAnalyticsHandler(reader).GetFraudCheck)

	reader.On("Get", mock.Anything, "c1").Return(&models.FraudCheck{ID: "c1", ActorID: "a", RiskLevel: "HIGH"}, nil).Once()
	resp, out := doJSON(t, app, "GET", "/fraud-checks/c1", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "c1", out["data"].(map[string]interface{})["id"])

	reader.On("Get", mock.Anything, "missing").Return(nil, repositories.ErrFraudCheckNotFound).Once()
	resp, _ = doJSON(t, app, "GET", "/fraud-checks/missing", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	reader.On("Get", mock.Anything, "c2").Return(nil, repositories.ErrDatabaseOperation).Once()
	resp, _ = doJSON(t, app, "GET", "/fraud-checks/c2", "", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	reader.AssertExpectations(t)
}

func TestHealthHandler(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	app := fiber.New()
	app.Get("/ok", NewHealthHandler("test", map[string]Pinger{"database": up, "redis": nil}).HealthCheck)
	app.Get("/down", NewHealthHandler("test", map[string]Pinger{"database": up, "redis": down}).HealthCheck)

	resp, out := doJSON(t, app, "GET", "/ok", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "disabled", out["services"].(map[string]interface{})["redis"])

	resp, out = doJSON(t, app, "GET", "/down", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, "unavailable", out["services"].(map[string]interface{})["redis"])
}
