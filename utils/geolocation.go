package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog"

	"pnodeatlas/models"
)

// Geo entries are cached far longer than node data: geography for a given IP
// rarely changes.
const GeoTTL = 7 * 24 * time.Hour

const geoKeyPrefix = "geo:"

const defaultGeoAPIBase = "http://ip-api.com"

// geoAPIFields is the field list requested from ip-api.com. The query field
// echoes back the canonical IP.
const geoAPIFields = "status,country,countryCode,region,regionName,city,lat,lon,timezone,isp,query"

// Store is the slice of the TTL cache the resolver needs.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// GeoResolver resolves an IP address to location metadata. Lookups go to a
// local MaxMind database when one is configured, then fall back to the
// ip-api.com HTTP service. Results are cached under geo:<ip>; failures are
// reported as nil and never cached.
type GeoResolver struct {
	store      Store
	db         *geoip2.Reader
	httpClient *http.Client
	log        zerolog.Logger

	// BaseURL of the lookup service, overridable in tests.
	BaseURL string
}

// NewGeoResolver creates a resolver backed by the given cache. dbPath may be
// empty, in which case every cache miss goes to the HTTP API.
func NewGeoResolver(store Store, dbPath string, timeout time.Duration, logger zerolog.Logger) (*GeoResolver, error) {
	var db *geoip2.Reader
	if dbPath != "" {
		var err error
		db, err = geoip2.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open geoip database %s: %w", dbPath, err)
		}
	}

	return &GeoResolver{
		store:      store,
		db:         db,
		httpClient: &http.Client{Timeout: timeout},
		BaseURL:    defaultGeoAPIBase,
		log:        logger.With().Str("component", "geo").Logger(),
	}, nil
}

// Close releases the MaxMind database, if any.
func (g *GeoResolver) Close() {
	if g.db != nil {
		g.db.Close()
	}
}

// Resolve returns the location for ip, or nil when it cannot be determined.
// Failure is per-IP and recoverable; it is never surfaced as an error.
// Repeated calls for the same IP within the TTL window return the cached
// value without new network traffic.
func (g *GeoResolver) Resolve(ctx context.Context, ip string) *models.GeoLocation {
	cacheKey := geoKeyPrefix + ip

	if val, ok := g.store.Get(cacheKey); ok {
		if loc, ok := val.(*models.GeoLocation); ok {
			return loc
		}
	}

	loc := g.lookupDB(ip)
	if loc == nil {
		var err error
		loc, err = g.fetchFromAPI(ctx, ip)
		if err != nil {
			g.log.Debug().Err(err).Str("ip", ip).Msg("geo lookup failed")
			return nil
		}
	}

	g.store.Set(cacheKey, loc, GeoTTL)
	return loc
}

// lookupDB consults the local MaxMind database. Returns nil when no database
// is configured, the IP does not parse, or the record carries no country.
func (g *GeoResolver) lookupDB(ipStr string) *models.GeoLocation {
	if g.db == nil {
		return nil
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil
	}
	record, err := g.db.City(ip)
	if err != nil || record.Country.IsoCode == "" {
		return nil
	}

	loc := &models.GeoLocation{
		IP:          ipStr,
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Lat:         record.Location.Latitude,
		Lon:         record.Location.Longitude,
		Timezone:    record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
		loc.RegionName = record.Subdivisions[0].Names["en"]
	}
	return loc
}

type geoAPIResponse struct {
	Status      string  `json:"status"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Query       string  `json:"query"`
}

func (g *GeoResolver) fetchFromAPI(ctx context.Context, ip string) (*models.GeoLocation, error) {
	url := fmt.Sprintf("%s/json/%s?fields=%s", g.BaseURL, ip, geoAPIFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo api status %d", resp.StatusCode)
	}

	var apiResp geoAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, err
	}

	if apiResp.Status != "success" {
		return nil, fmt.Errorf("geo api returned status %q", apiResp.Status)
	}

	return &models.GeoLocation{
		IP:          apiResp.Query,
		Country:     apiResp.Country,
		CountryCode: apiResp.CountryCode,
		Region:      apiResp.Region,
		RegionName:  apiResp.RegionName,
		City:        apiResp.City,
		Lat:         apiResp.Lat,
		Lon:         apiResp.Lon,
		Timezone:    apiResp.Timezone,
		ISP:         apiResp.ISP,
	}, nil
}
