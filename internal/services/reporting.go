package services

import (
	"context"
	"time"

	"qrverify/internal/models"
	"qrverify/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPerPage   = 100
	MaxPerPage       = 1000
	MostScannedLimit = 10
)

type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// NormalizePagination clamps page to >= 1 and perPage to [1, MaxPerPage],
// with non-positive perPage meaning DefaultPerPage.
func NormalizePagination(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return page, perPage
}

func NewPagination(page, perPage int, total int64) Pagination {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

type AccessLogPage struct {
	Logs       []models.AccessLog `json:"logs"`
	Count      int                `json:"count"`
	QRIDFilter string             `json:"qr_id_filter"`
	Pagination Pagination         `json:"pagination"`
}

type AccessStats struct {
	TotalScans    int64                    `json:"total_scans"`
	ScansToday    int64                    `json:"scans_today"`
	UniqueQRCodes int64                    `json:"unique_qr_codes"`
	MostScanned   []models.QRScanCount     `json:"most_scanned"`
	DeviceStats   []models.DeviceTypeCount `json:"device_stats"`
	BrowserStats  []models.BrowserCount    `json:"browser_stats"`
}

type AccessLogReader interface {
	Count(ctx context.Context, filter repository.AccessLogFilter) (int64, error)
	Page(ctx context.Context, filter repository.AccessLogFilter, page, perPage int) ([]models.AccessLog, error)
	CountBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountDistinctQRIDs(ctx context.Context) (int64, error)
	TopQRIDs(ctx context.Context, limit int) ([]models.QRScanCount, error)
	CountByDeviceType(ctx context.Context) ([]models.DeviceTypeCount, error)
	CountByBrowser(ctx context.Context) ([]models.BrowserCount, error)
}

type RegistryLister interface {
	ListWithScanCounts(ctx context.Context) ([]models.QRCodeWithScans, error)
}

// ReportingService answers the admin read models. It only reads.
type ReportingService struct {
	logs     AccessLogReader
	registry RegistryLister
	now      func() time.Time
}

func NewReportingService(logs AccessLogReader, registry RegistryLister) *ReportingService {
	return &ReportingService{
		logs:     logs,
		registry: registry,
		now:      time.Now,
	}
}

// AccessLogs returns one page of entries, most recent first. Out-of-range
// perPage values are clamped; a page past the end is empty.
func (s *ReportingService) AccessLogs(ctx context.Context, qrIDFilter string, page, perPage int) (AccessLogPage, error) {
	page, perPage = NormalizePagination(page, perPage)
	filter := repository.AccessLogFilter{QRID: qrIDFilter}

	total, err := s.logs.Count(ctx, filter)
	if err != nil {
		return AccessLogPage{}, err
	}

	pagination := NewPagination(page, perPage, total)

	logs := []models.AccessLog{}
	if page <= pagination.TotalPages {
		logs, err = s.logs.Page(ctx, filter, page, perPage)
		if err != nil {
			return AccessLogPage{}, err
		}
	}

	return AccessLogPage{
		Logs:       logs,
		Count:      len(logs),
		QRIDFilter: qrIDFilter,
		Pagination: pagination,
	}, nil
}

// Stats computes the dashboard aggregates concurrently. "Today" is the
// server's local calendar day.
func (s *ReportingService) Stats(ctx context.Context) (AccessStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var stats AccessStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalScans, err = s.logs.Count(gctx, repository.AccessLogFilter{})
		return err
	})
	g.Go(func() (err error) {
		stats.ScansToday, err = s.logs.CountBetween(gctx, dayStart, dayEnd)
		return err
	})
	g.Go(func() (err error) {
		stats.UniqueQRCodes, err = s.logs.CountDistinctQRIDs(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.MostScanned, err = s.logs.TopQRIDs(gctx, MostScannedLimit)
		return err
	})
	g.Go(func() (err error) {
		stats.DeviceStats, err = s.logs.CountByDeviceType(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.BrowserStats, err = s.logs.CountByBrowser(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return AccessStats{}, err
	}
	return stats, nil
}

func (s *ReportingService) QRCodes(ctx context.Context) ([]models.QRCodeWithScans, error) {
	return s.registry.ListWithScanCounts(ctx)
}
