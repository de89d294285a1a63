package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"qrverify/internal/config"
	"qrverify/internal/metrics"
	"qrverify/internal/models"
	"qrverify/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupServicesDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.InitDB(config.Config{DatabaseURL: "sqlite://:memory:"})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	return db
}

type staticLocator struct {
	loc *Location
}

func (s staticLocator) Locate(_ context.Context, _ string) Location {
	if s.loc == nil {
		return UnknownLocation()
	}
	return *s.loc
}

type memoryAppender struct {
	mu      sync.Mutex
	entries []*models.AccessLog
	err     error
}

func (m *memoryAppender) Append(_ context.Context, entry *models.AccessLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAppender) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestAccessLogWorker_ProcessesEvents(t *testing.T) {
	store := &memoryAppender{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	worker := NewAccessLogWorker(store, staticLocator{loc: &Location{Country: "Germany", City: "Berlin"}}, testLogger(), m, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	ok := worker.RecordAsync(AccessEvent{
		QRID:       "a1b2c3d4",
		Endpoint:   "/verify/a1b2c3d4",
		Method:     "GET",
		StatusCode: 200,
		Client: ClientInfo{
			IPAddress:  "203.0.113.7",
			UserAgent:  "Mozilla/5.0",
			Browser:    models.BrowserOther,
			Platform:   models.PlatformUnknown,
			DeviceType: models.DeviceDesktop,
		},
	})
	require.True(t, ok)

	assert.Eventually(t, func() bool { return store.len() == 1 }, time.Second, 5*time.Millisecond)

	store.mu.Lock()
	entry := store.entries[0]
	store.mu.Unlock()
	assert.Equal(t, "a1b2c3d4", entry.QRID)
	assert.Equal(t, "Germany", entry.Country)
	assert.Equal(t, "Berlin", entry.City)
	assert.Equal(t, 200, entry.StatusCode)
	assert.Equal(t, "GET", entry.HTTPMethod)
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AccessLogsWritten))
}

func TestAccessLogWorker_DropsWhenFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	worker := NewAccessLogWorker(&memoryAppender{}, nil, testLogger(), m, 1)

	assert.True(t, worker.RecordAsync(AccessEvent{QRID: "first"}))
	assert.False(t, worker.RecordAsync(AccessEvent{QRID: "second"}))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AccessLogsDropped))
}

func TestAccessLogWorker_StoreFailureIsContained(t *testing.T) {
	store := &memoryAppender{err: errBoom}
	m := metrics.New(prometheus.NewRegistry())
	worker := NewAccessLogWorker(store, nil, testLogger(), m, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	worker.RecordAsync(AccessEvent{QRID: "a1b2c3d4", StatusCode: 200})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.AccessLogFailures) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.AccessLogsWritten))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestAccessLogWorker_DrainsOnShutdown(t *testing.T) {
	store := &memoryAppender{}
	worker := NewAccessLogWorker(store, nil, testLogger(), nil, 10)

	for i := 0; i < 5; i++ {
		require.True(t, worker.RecordAsync(AccessEvent{QRID: "a1b2c3d4"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.Start(ctx)

	assert.Equal(t, 5, store.len())
}

func TestAccessLogWorker_DefaultQueueSize(t *testing.T) {
	worker := NewAccessLogWorker(&memoryAppender{}, nil, testLogger(), nil, 0)
	assert.Equal(t, 1000, cap(worker.queue))
}

func TestBuildAccessLog(t *testing.T) {
	t.Run("Truncates Long Fields", func(t *testing.T) {
		entry := buildAccessLog(AccessEvent{
			QRID:     strings.Repeat("x", 300),
			Endpoint: "/verify/" + strings.Repeat("x", 300),
			Method:   "PROPFINDLONG",
		})
		assert.Len(t, entry.QRID, 255)
		assert.Len(t, entry.Endpoint, 255)
		assert.Len(t, entry.HTTPMethod, 10)
	})

	t.Run("Defaults Location To Unknown", func(t *testing.T) {
		entry := buildAccessLog(AccessEvent{QRID: "a1b2c3d4"})
		assert.Equal(t, models.UnknownLocation, entry.Country)
		assert.Equal(t, models.UnknownLocation, entry.City)
	})
}

// blockingLocator holds Locate open until release is closed and records
// whether its context had been cancelled by then.
type blockingLocator struct {
	started   chan struct{}
	release   chan struct{}
	cancelled chan bool
}

func (b *blockingLocator) Locate(ctx context.Context, _ string) Location {
	close(b.started)
	select {
	case <-b.release:
		b.cancelled <- false
	case <-ctx.Done():
		b.cancelled <- true
	}
	return Location{Country: "Germany", City: "Berlin"}
}

func TestAccessLogWorker_ShutdownDuringLookupKeepsEntry(t *testing.T) {
	store := &memoryAppender{}
	geo := &blockingLocator{
		started:   make(chan struct{}),
		release:   make(chan struct{}),
		cancelled: make(chan bool, 1),
	}
	worker := NewAccessLogWorker(store, geo, testLogger(), nil, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	require.True(t, worker.RecordAsync(AccessEvent{QRID: "a1b2c3d4", StatusCode: 200}))

	select {
	case <-geo.started:
	case <-time.After(time.Second):
		t.Fatal("lookup never started")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(geo.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.False(t, <-geo.cancelled, "lookup context must survive worker shutdown")
	require.Equal(t, 1, store.len())
	assert.Equal(t, "Germany", store.entries[0].Country)
}
