package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"github.com/lifelog/internal/handler"
	"github.com/lifelog/internal/service"
	"github.com/lifelog/internal/streak"
)

func setupTestAPI(t *testing.T) *handler.API {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open(fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cal := daykey.NewCalendar(time.UTC)
	logs := service.NewActivityLogService(gdb, cal)
	settings := service.NewSettingService(gdb)
	engine := streak.NewEngine(logs, service.NewRecordService(gdb), cal).WithMilestones(settings)
	return handler.NewAPI(gdb, logs, settings, engine)
}

func TestSetupRouterRegistersRoutes(t *testing.T) {
	r := SetupRouter(setupTestAPI(t), true)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{method: http.MethodGet, path: "/ping", status: http.StatusOK},
		{method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/tasks", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/streak", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/special-tasks", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/settings/milestones", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/tasks/1/complete", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/unknown", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	api := setupTestAPI(t)

	enabled := SetupRouter(api, true)
	rr := httptest.NewRecorder()
	enabled.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/streak", nil))
	rr = httptest.NewRecorder()
	enabled.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "lifelog_streak_recomputations_total") {
		t.Fatalf("expected streak metrics in output")
	}

	disabled := SetupRouter(api, false)
	rr = httptest.NewRecorder()
	disabled.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with metrics disabled, got %d", rr.Code)
	}
}
