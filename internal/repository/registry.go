package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrverify/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RegistryStore reads and provisions registered QR codes. Lookups go through
// an optional Redis cache; rows are immutable so cached copies never go
// stale.
type RegistryStore struct {
	db       *gorm.DB
	cache    *Cache
	cacheTTL time.Duration
}

func NewRegistryStore(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) *RegistryStore {
	return &RegistryStore{
		db:       db,
		cache:    NewCache(rdb, "qr:"),
		cacheTTL: cacheTTL,
	}
}

// Lookup returns the record for qrID, ErrNotFound when there is none, or an
// error wrapping ErrStoreUnavailable.
func (s *RegistryStore) Lookup(ctx context.Context, qrID string) (*models.QRCode, error) {
	var code models.QRCode
	if s.cache.Get(ctx, qrID, &code) {
		return &code, nil
	}

	err := s.db.WithContext(ctx).Where("qr_id = ?", qrID).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: lookup %q: %v", ErrStoreUnavailable, qrID, err)
	}

	s.cache.Set(ctx, qrID, code, s.cacheTTL)
	return &code, nil
}

func (s *RegistryStore) Exists(ctx context.Context, qrID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.QRCode{}).Where("qr_id = ?", qrID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("%w: exists %q: %v", ErrStoreUnavailable, qrID, err)
	}
	return count > 0, nil
}

func (s *RegistryStore) Create(ctx context.Context, code *models.QRCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(code).Error; err != nil {
		return fmt.Errorf("failed to create qr code %q: %w", code.QRID, err)
	}
	return nil
}

// ListWithScanCounts returns every registered code with the number of
// access log entries that reference it, newest first.
func (s *RegistryStore) ListWithScanCounts(ctx context.Context) ([]models.QRCodeWithScans, error) {
	var rows []models.QRCodeWithScans
	err := s.db.WithContext(ctx).
		Table("qr_codes AS qc").
		Select("qc.qr_id, qc.description, qc.created_at, COUNT(al.id) AS scan_count").
		Joins("LEFT JOIN api_access_logs AS al ON al.qr_id = qc.qr_id").
		Group("qc.id, qc.qr_id, qc.description, qc.created_at").
		Order("qc.created_at DESC, qc.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list qr codes: %v", ErrStoreUnavailable, err)
	}
	if rows == nil {
		rows = []models.QRCodeWithScans{}
	}
	return rows, nil
}
