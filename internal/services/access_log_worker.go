package services

import (
	"context"
	"log/slog"
	"time"

	"qrverify/internal/metrics"
	"qrverify/internal/models"
)

const defaultWriteTimeout = 10 * time.Second

// AccessLogAppender persists finished access log entries.
type AccessLogAppender interface {
	Append(ctx context.Context, entry *models.AccessLog) error
}

// Locator resolves an IP to a Location without ever failing.
type Locator interface {
	Locate(ctx context.Context, ip string) Location
}

// AccessEvent is a verification attempt waiting to be enriched and written.
type AccessEvent struct {
	QRID       string
	Endpoint   string
	Method     string
	StatusCode int
	Client     ClientInfo
}

// AccessLogWorker takes access events off the request path. Producers call
// RecordAsync, which never blocks; Start drains the queue, adds geo data and
// appends to the store. Write failures are logged and counted, nothing more.
type AccessLogWorker struct {
	store        AccessLogAppender
	geo          Locator
	logger       *slog.Logger
	metrics      *metrics.Metrics
	queue        chan AccessEvent
	writeTimeout time.Duration
}

func NewAccessLogWorker(store AccessLogAppender, geo Locator, logger *slog.Logger, m *metrics.Metrics, queueSize int) *AccessLogWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &AccessLogWorker{
		store:        store,
		geo:          geo,
		logger:       logger,
		metrics:      m,
		queue:        make(chan AccessEvent, queueSize),
		writeTimeout: defaultWriteTimeout,
	}
}

// RecordAsync queues ev and reports whether it was accepted.
func (w *AccessLogWorker) RecordAsync(ev AccessEvent) bool {
	select {
	case w.queue <- ev:
		w.metrics.AccessLogQueue.Set(float64(len(w.queue)))
		return true
	default:
		w.metrics.AccessLogsDropped.Inc()
		w.logger.Warn("Access log queue full, dropping entry", "qr_id", ev.QRID, "status_code", ev.StatusCode)
		return false
	}
}

// Start runs until ctx is cancelled, then flushes whatever is still queued.
// Several workers may share one queue.
func (w *AccessLogWorker) Start(ctx context.Context) {
	w.logger.Info("Access log worker starting")
	for {
		select {
		case ev := <-w.queue:
			w.process(ctx, ev)
		case <-ctx.Done():
			w.drain()
			w.logger.Info("Access log worker stopping")
			return
		}
	}
}

func (w *AccessLogWorker) drain() {
	for {
		select {
		case ev := <-w.queue:
			w.process(context.Background(), ev)
		default:
			return
		}
	}
}

// process finishes an entry even if ctx is cancelled mid-flight; only
// writeTimeout bounds it.
func (w *AccessLogWorker) process(ctx context.Context, ev AccessEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.writeTimeout)
	defer cancel()

	w.metrics.AccessLogQueue.Set(float64(len(w.queue)))

	entry := buildAccessLog(ev)
	if w.geo != nil {
		loc := w.geo.Locate(ctx, ev.Client.IPAddress)
		entry.Country = loc.Country
		entry.City = loc.City
	}

	if err := w.store.Append(ctx, entry); err != nil {
		w.metrics.AccessLogFailures.Inc()
		w.logger.Error("Failed to write access log", "qr_id", entry.QRID, "status_code", entry.StatusCode, "error", err)
		return
	}
	w.metrics.AccessLogsWritten.Inc()
}

func buildAccessLog(ev AccessEvent) *models.AccessLog {
	return &models.AccessLog{
		QRID:           truncate(ev.QRID, 255),
		IPAddress:      truncate(ev.Client.IPAddress, 45),
		UserAgent:      ev.Client.UserAgent,
		Endpoint:       truncate(ev.Endpoint, 255),
		HTTPMethod:     truncate(ev.Method, 10),
		StatusCode:     ev.StatusCode,
		Country:        models.UnknownLocation,
		City:           models.UnknownLocation,
		Browser:        ev.Client.Browser,
		BrowserVersion: ev.Client.BrowserVersion,
		Platform:       ev.Client.Platform,
		DeviceType:     ev.Client.DeviceType,
	}
}
