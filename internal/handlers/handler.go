package handlers

import (
	"log/slog"

	"qrverify/internal/config"
	"qrverify/internal/services"

	"github.com/prometheus/client_golang/prometheus"
)

type Handler struct {
	cfg          config.Config
	logger       *slog.Logger
	verification *services.VerificationService
	reporting    *services.ReportingService
	registry     services.Registry
	qrService    *services.QRService
	gatherer     prometheus.Gatherer
}

func NewHandler(
	cfg config.Config,
	logger *slog.Logger,
	verification *services.VerificationService,
	reporting *services.ReportingService,
	registry services.Registry,
	qrService *services.QRService,
	gatherer prometheus.Gatherer,
) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		cfg:          cfg,
		logger:       logger,
		verification: verification,
		reporting:    reporting,
		registry:     registry,
		qrService:    qrService,
		gatherer:     gatherer,
	}
}
