package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"qrverify/internal/models"

	"gorm.io/gorm"
)

// AccessLogFilter narrows log queries. The zero value matches everything.
type AccessLogFilter struct {
	QRID string
}

func (f AccessLogFilter) apply(q *gorm.DB) *gorm.DB {
	if f.QRID != "" {
		q = q.Where("qr_id = ?", f.QRID)
	}
	return q
}

// AccessLogStore is the append-only verification audit trail. Nothing in
// here updates or deletes rows.
type AccessLogStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAccessLogStore(db *gorm.DB) *AccessLogStore {
	return &AccessLogStore{db: db, now: time.Now}
}

// Append inserts entry. AccessTime is always assigned here, whatever the
// caller put in it.
func (s *AccessLogStore) Append(ctx context.Context, entry *models.AccessLog) error {
	entry.ID = 0
	entry.AccessTime = s.now().UTC()
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("%w: append access log: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *AccessLogStore) Count(ctx context.Context, filter AccessLogFilter) (int64, error) {
	var total int64
	q := filter.apply(s.db.WithContext(ctx).Model(&models.AccessLog{}))
	if err := q.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("%w: count access logs: %v", ErrStoreUnavailable, err)
	}
	return total, nil
}

// Page returns one page of entries, most recent first. page is 1-based.
func (s *AccessLogStore) Page(ctx context.Context, filter AccessLogFilter, page, perPage int) ([]models.AccessLog, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	logs := []models.AccessLog{}
	if page-1 > math.MaxInt/perPage {
		return logs, nil
	}
	q := filter.apply(s.db.WithContext(ctx).Model(&models.AccessLog{}))
	err := q.Order("access_time DESC").Order("id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: page access logs: %v", ErrStoreUnavailable, err)
	}
	return logs, nil
}

// CountBetween counts entries with from <= access_time < to.
func (s *AccessLogStore) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.AccessLog{}).
		Where("access_time >= ? AND access_time < ?", from.UTC(), to.UTC()).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count access logs in range: %v", ErrStoreUnavailable, err)
	}
	return total, nil
}

func (s *AccessLogStore) CountDistinctQRIDs(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.AccessLog{}).
		Distinct("qr_id").
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count distinct qr ids: %v", ErrStoreUnavailable, err)
	}
	return total, nil
}

// TopQRIDs ranks identifiers by entry count. Ties go to the smaller id so
// the ranking is stable between calls.
func (s *AccessLogStore) TopQRIDs(ctx context.Context, limit int) ([]models.QRScanCount, error) {
	rows := []models.QRScanCount{}
	err := s.db.WithContext(ctx).Model(&models.AccessLog{}).
		Select("qr_id, COUNT(*) AS scan_count").
		Group("qr_id").
		Order("scan_count DESC, qr_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: top qr ids: %v", ErrStoreUnavailable, err)
	}
	return rows, nil
}

func (s *AccessLogStore) CountByDeviceType(ctx context.Context) ([]models.DeviceTypeCount, error) {
	rows := []models.DeviceTypeCount{}
	err := s.db.WithContext(ctx).Model(&models.AccessLog{}).
		Select("device_type, COUNT(*) AS count").
		Group("device_type").
		Order("count DESC, device_type ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: device type breakdown: %v", ErrStoreUnavailable, err)
	}
	return rows, nil
}

func (s *AccessLogStore) CountByBrowser(ctx context.Context) ([]models.BrowserCount, error) {
	rows := []models.BrowserCount{}
	err := s.db.WithContext(ctx).Model(&models.AccessLog{}).
		Select("browser, COUNT(*) AS count").
		Group("browser").
		Order("count DESC, browser ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: browser breakdown: %v", ErrStoreUnavailable, err)
	}
	return rows, nil
}
