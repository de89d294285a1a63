package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"qrverify/internal/config"
	"qrverify/internal/metrics"
	"qrverify/internal/models"
	"qrverify/internal/repository"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
	"github.com/redis/go-redis/v9"
)

const (
	geoCacheTTL     = 24 * time.Hour
	geoMaxBodyBytes = 64 << 10
)

// Location is the coarse place an IP resolves to.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

func UnknownLocation() Location {
	return Location{Country: models.UnknownLocation, City: models.UnknownLocation}
}

type geoIPReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Metadata() maxminddb.Metadata
	Close() error
}

// GeoIPService resolves IPs to a Location. It tries, in order, the Redis
// cache, a local MaxMind database and the HTTP geolocation API. Every
// failure collapses to UnknownLocation.
type GeoIPService struct {
	cfg        config.Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	cache      *repository.Cache
	httpClient *http.Client
	geoReader  geoIPReader
	geoLock    sync.RWMutex
}

func NewGeoIPService(cfg config.Config, logger *slog.Logger, rdb *redis.Client, m *metrics.Metrics) *GeoIPService {
	timeout := cfg.GeoTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cfg.GeoTimeout = timeout
	if m == nil {
		m = metrics.NewNop()
	}
	return &GeoIPService{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		cache:      repository.NewCache(rdb, "geo:"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Init loads the local MaxMind database, downloading it first when
// credentials are configured and the file is missing.
func (s *GeoIPService) Init() {
	dbPath := s.cfg.MaxMindDBPath

	if s.cfg.MaxMindAccountID == "" || s.cfg.MaxMindLicenseKey == "" {
		if dbPath != "" {
			if _, err := os.Stat(dbPath); err == nil {
				s.reloadReader(dbPath)
				return
			}
		}
		s.logger.Info("GeoIP: MaxMind database not configured, using HTTP lookups only")
		return
	}

	dbDir := filepath.Dir(dbPath)

	if err := os.MkdirAll(dbDir, 0755); err != nil {
		s.logger.Error("GeoIP: Failed to create directory", "dir", dbDir, "error", err)
		return
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		s.logger.Info("GeoIP: Database missing, downloading...")
		if err := s.updateGeoDB(); err != nil {
			s.logger.Error("GeoIP: Initial download failed", "error", err)
		}
	}

	s.reloadReader(dbPath)
}

func (s *GeoIPService) StartUpdater(ctx context.Context) {
	s.StartUpdaterWithInterval(ctx, 24*time.Hour)
}

func (s *GeoIPService) StartUpdaterWithInterval(ctx context.Context, interval time.Duration) {
	if s.cfg.MaxMindAccountID == "" {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logger.Info("GeoIP: Running scheduled update...")
			if err := s.updateGeoDB(); err != nil {
				s.logger.Error("GeoIP: Update failed", "error", err)
				continue
			}
			s.reloadReader(s.cfg.MaxMindDBPath)
		case <-ctx.Done():
			s.logger.Info("GeoIP: Updater stopping")
			return
		}
	}
}

func (s *GeoIPService) updateGeoDB() error {
	dbDir := filepath.Dir(s.cfg.MaxMindDBPath)
	confPath := filepath.Join(dbDir, "GeoIP.conf")

	content := fmt.Sprintf("AccountID %s\nLicenseKey %s\nEditionIDs %s\nDatabaseDirectory %s\n",
		s.cfg.MaxMindAccountID, s.cfg.MaxMindLicenseKey, s.cfg.MaxMindEditionIDs, dbDir)

	if err := os.WriteFile(confPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write GeoIP.conf: %w", err)
	}
	defer os.Remove(confPath)

	cmd := exec.Command("geoipupdate", "-v", "-f", confPath, "-d", dbDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("geoipupdate failed: %w, output: %s", err, string(output))
	}

	s.logger.Info("GeoIP: Database updated successfully")
	return nil
}

func (s *GeoIPService) reloadReader(path string) {
	s.geoLock.Lock()
	defer s.geoLock.Unlock()

	if s.geoReader != nil {
		s.geoReader.Close()
		s.geoReader = nil
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		s.logger.Error("GeoIP: Failed to open database", "path", path, "error", err)
		return
	}
	s.geoReader = reader

	meta := reader.Metadata()
	s.logger.Info("GeoIP: Loaded database", "type", meta.DatabaseType, "epoch", meta.BuildEpoch)
}

func (s *GeoIPService) Close() {
	s.geoLock.Lock()
	defer s.geoLock.Unlock()
	if s.geoReader != nil {
		s.geoReader.Close()
		s.geoReader = nil
	}
}

// Locate never returns an error and never blocks longer than the configured
// geo timeout. Local and unparseable addresses are not looked up at all.
func (s *GeoIPService) Locate(ctx context.Context, ipStr string) Location {
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil || isLocalIP(ip) {
		s.metrics.IncGeoLookup("skipped", "miss")
		return UnknownLocation()
	}
	key := ip.String()

	var loc Location
	if s.cache.Get(ctx, key, &loc) {
		s.metrics.IncGeoLookup("cache", "hit")
		return loc
	}

	if loc, ok := s.lookupMaxMind(ip); ok {
		s.cache.Set(ctx, key, loc, geoCacheTTL)
		return loc
	}

	if loc, ok := s.lookupHTTP(ctx, key); ok {
		s.cache.Set(ctx, key, loc, geoCacheTTL)
		return loc
	}

	return UnknownLocation()
}

func (s *GeoIPService) lookupMaxMind(ip net.IP) (Location, bool) {
	s.geoLock.RLock()
	defer s.geoLock.RUnlock()

	if s.geoReader == nil {
		return Location{}, false
	}

	record, err := s.geoReader.City(ip)
	if err != nil {
		s.logger.Warn("GeoIP: Lookup error", "ip", ip.String(), "error", err)
		s.metrics.IncGeoLookup("maxmind", "error")
		return Location{}, false
	}

	country := record.Country.Names["en"]
	if country == "" {
		country = record.Country.IsoCode
	}
	if country == "" {
		s.metrics.IncGeoLookup("maxmind", "miss")
		return Location{}, false
	}

	s.metrics.IncGeoLookup("maxmind", "hit")
	return Location{
		Country: country,
		City:    orUnknown(record.City.Names["en"]),
	}, true
}

type geoAPIResponse struct {
	CountryName string `json:"country_name"`
	City        string `json:"city"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

func (s *GeoIPService) lookupHTTP(ctx context.Context, ip string) (Location, bool) {
	if s.cfg.GeoAPIURL == "" {
		return Location{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GeoTimeout)
	defer cancel()

	endpoint := strings.TrimRight(s.cfg.GeoAPIURL, "/") + "/" + url.PathEscape(ip) + "/json/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		s.metrics.IncGeoLookup("http", "error")
		return Location{}, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("GeoIP: HTTP lookup failed", "ip", ip, "error", err)
		s.metrics.IncGeoLookup("http", "error")
		return Location{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("GeoIP: HTTP lookup rejected", "ip", ip, "status", resp.StatusCode)
		s.metrics.IncGeoLookup("http", "error")
		return Location{}, false
	}

	var payload geoAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, geoMaxBodyBytes)).Decode(&payload); err != nil {
		s.logger.Debug("GeoIP: HTTP lookup returned malformed payload", "ip", ip, "error", err)
		s.metrics.IncGeoLookup("http", "error")
		return Location{}, false
	}
	if payload.Error {
		s.logger.Debug("GeoIP: HTTP lookup refused", "ip", ip, "reason", payload.Reason)
		s.metrics.IncGeoLookup("http", "miss")
		return Location{}, false
	}

	s.metrics.IncGeoLookup("http", "hit")
	return Location{
		Country: orUnknown(payload.CountryName),
		City:    orUnknown(payload.City),
	}, true
}

func isLocalIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.UnknownLocation
	}
	return s
}
