package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libracore/circulation-service/stats/internal/handler"
	"github.com/libracore/circulation-service/stats/internal/model"
)

type statsStub struct {
	info model.StatsInfo
	err  error
}

func (s *statsStub) GetStats(ctx context.Context) (model.StatsInfo, error) {
	return s.info, s.err
}

func TestHandler_GetStats(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		stub := &statsStub{info: model.StatsInfo{
			TotalEvents:  4,
			LastActivity: &last,
			ByAction: []model.ActionCount{
				{Action: "CREATE", Count: 2},
				{Action: "ISSUE", Count: 1},
				{Action: "RETURN", Count: 1},
			},
		}}
		e := handler.New(stub, zap.NewExample()).NewRouter()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{
			"totalEvents": 4,
			"lastActivity": "2024-05-01T12:00:00Z",
			"byAction": [
				{"action": "CREATE", "count": 2},
				{"action": "ISSUE", "count": 1},
				{"action": "RETURN", "count": 1}
			]
		}`, rec.Body.String())
	})

	t.Run("store failure maps to 500", func(t *testing.T) {
		t.Parallel()
		stub := &statsStub{err: errors.New("select transactions: connection refused")}
		e := handler.New(stub, zap.NewExample()).NewRouter()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("health", func(t *testing.T) {
		t.Parallel()
		e := handler.New(&statsStub{}, zap.NewExample()).NewRouter()

		req := httptest.NewRequest(http.MethodGet, "/manage/health", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})
}
