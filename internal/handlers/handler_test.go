package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qrverify/internal/config"
	"qrverify/internal/metrics"
	"qrverify/internal/models"
	"qrverify/internal/repository"
	"qrverify/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testAdminUser = "admin"
	testAdminPass = "s3cret:with:colons"
)

type testEnv struct {
	handler *Handler
	router  *gin.Engine
	db      *gorm.DB
	logs    *repository.AccessLogStore
}

func setupTestHandler(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.InitDB(config.Config{DatabaseURL: "sqlite://:memory:"})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{BaseURL: "https://verify.example.com"}

	// Use a dummy redis client (not connected) with no retries
	rdb := redis.NewClient(&redis.Options{
		Addr:       "localhost:1",
		MaxRetries: -1,
	})
	t.Cleanup(func() { rdb.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	registry := repository.NewRegistryStore(db, rdb, time.Minute)
	logs := repository.NewAccessLogStore(db)
	geo := services.NewGeoIPService(config.Config{}, logger, nil, m)
	worker := services.NewAccessLogWorker(logs, geo, logger, m, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	verification := services.NewVerificationService(registry, worker, logger, m)
	reporting := services.NewReportingService(logs, registry)
	qr := services.NewQRService(cfg.BaseURL)

	h := NewHandler(cfg, logger, verification, reporting, registry, qr, reg)

	users, err := config.ParseAdminCredentials(testAdminUser + ":" + testAdminPass)
	require.NoError(t, err)

	return &testEnv{
		handler: h,
		router:  setupTestRouter(h, users),
		db:      db,
		logs:    logs,
	}
}

func setupTestRouter(h *Handler, users config.AdminUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return h.SetupRouter(users, "../../web/templates/*.html", "../../web/static")
}

func (e *testEnv) seedLibraryCard(t *testing.T) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.QRCode{
		QRID:        "a1b2c3d4",
		Description: "Library Card #42",
		CreatedAt:   time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}).Error)
}

func (e *testEnv) closeDB(t *testing.T) {
	t.Helper()
	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func adminRequest(method, path string) *http.Request {
	req, _ := http.NewRequest(method, path, nil)
	req.SetBasicAuth(testAdminUser, testAdminPass)
	return req
}
