package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"qrverify/internal/metrics"
	"qrverify/internal/models"
	"qrverify/internal/repository"
)

// Outcome is the terminal state of one verification.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeStoreError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "store_error"
	}
}

// StatusCode is the status recorded in the access log for this outcome.
func (o Outcome) StatusCode() int {
	switch o {
	case OutcomeFound:
		return http.StatusOK
	case OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type Registry interface {
	Lookup(ctx context.Context, qrID string) (*models.QRCode, error)
}

type AccessRecorder interface {
	RecordAsync(ev AccessEvent) bool
}

type VerifyRequest struct {
	QRID     string
	Endpoint string
	Method   string
	Client   ClientInfo
}

type VerifyResult struct {
	Outcome Outcome
	Record  *models.QRCode
	Err     error
}

// VerificationService resolves an identifier and queues exactly one access
// log event per call, whatever the outcome.
type VerificationService struct {
	registry Registry
	recorder AccessRecorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewVerificationService(registry Registry, recorder AccessRecorder, logger *slog.Logger, m *metrics.Metrics) *VerificationService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &VerificationService{
		registry: registry,
		recorder: recorder,
		logger:   logger,
		metrics:  m,
	}
}

func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) VerifyResult {
	var result VerifyResult

	record, err := s.registry.Lookup(ctx, req.QRID)
	switch {
	case err == nil:
		result = VerifyResult{Outcome: OutcomeFound, Record: record}
	case errors.Is(err, repository.ErrNotFound):
		result = VerifyResult{Outcome: OutcomeNotFound}
	default:
		s.logger.Error("Registry lookup failed", "qr_id", req.QRID, "error", err)
		result = VerifyResult{Outcome: OutcomeStoreError, Err: err}
	}

	s.metrics.IncVerification(result.Outcome.String())
	s.recorder.RecordAsync(AccessEvent{
		QRID:       req.QRID,
		Endpoint:   req.Endpoint,
		Method:     req.Method,
		StatusCode: result.Outcome.StatusCode(),
		Client:     req.Client,
	})

	return result
}
