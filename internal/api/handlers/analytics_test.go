package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/domain/analytics"
	"github.com/awstrack/awstrack/internal/services"
)

func analyticsRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := testLog()
	agg := services.NewAggregator(analytics.DefaultScoreWeights, analytics.DefaultCategoryBounds, nil, log)

	for i, user := range []string{"alice", "alice", "bob"} {
		e := &activity.Event{
			ID:        string(rune('a' + i)),
			Timestamp: time.Now(),
			EventName: "GetObject",
			Actor:     activity.Identity{UserName: user},
			ReadOnly:  true,
		}
		if err := agg.IngestActivity(context.Background(), e, false); err != nil {
			t.Fatalf("seeding aggregator: %v", err)
		}
	}

	h := NewAnalyticsHandler(agg, log)
	r := chi.NewRouter()
	r.Get("/analytics/summary", h.Summary)
	r.Get("/analytics/users/top-usage", h.TopByUsage)
	r.Get("/analytics/users/top-cost", h.TopByCost)
	r.Get("/analytics/users/inactive", h.Inactive)
	r.Get("/analytics/users/{id}", h.User)
	return r
}

func TestAnalyticsHandler_TopByUsage(t *testing.T) {
	r := analyticsRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/users/top-usage?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var users []*analytics.UserMetricsSnapshot
	decodeSuccess(t, rec, &users)
	if len(users) != 1 || users[0].UserID != "alice" {
		t.Errorf("top users = %v, want [alice]", users)
	}
}

func TestAnalyticsHandler_User(t *testing.T) {
	r := analyticsRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/users/alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var detail analytics.UserDetail
	decodeSuccess(t, rec, &detail)
	if detail.Metrics == nil || detail.Metrics.TotalEvents != 2 {
		t.Errorf("detail = %+v", detail.Metrics)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/users/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
}

func TestAnalyticsHandler_Summary(t *testing.T) {
	r := analyticsRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var summary map[string]interface{}
	decodeSuccess(t, rec, &summary)
	if summary["users_tracked"] != float64(2) {
		t.Errorf("users_tracked = %v, want 2", summary["users_tracked"])
	}
}

func TestAlertHandler_ListWithoutHistory(t *testing.T) {
	h := NewAlertHandler(nil, testLog())
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/alerts", nil))

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501 when history is disabled", rec.Code)
	}
	if detail := decodeError(t, rec); detail.Code != "NO_HISTORY" {
		t.Errorf("error code = %q", detail.Code)
	}
}
