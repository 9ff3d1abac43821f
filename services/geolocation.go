package services

import (
	stdctx "context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// GeolocationService resolves a client IP to a state or region name. Registration
// uses it when a teen leaves their state blank.
type GeolocationService struct {
	context.DefaultService

	httpClient  *http.Client
	apiURL      string
	cache       cacheStore
	cacheExpiry time.Duration
}

const GEOLOCATION_SVC = "geolocation_svc"

func (svc GeolocationService) Id() string {
	return GEOLOCATION_SVC
}

func (svc *GeolocationService) Configure(ctx *context.Context) error {
	svc.httpClient = &http.Client{
		Timeout: 5 * time.Second,
	}
	svc.apiURL = os.Getenv("GEOLOCATION_API_URL")
	if svc.apiURL == "" {
		svc.apiURL = "http://ip-api.com/json"
	}
	svc.cacheExpiry = 24 * time.Hour
	return svc.DefaultService.Configure(ctx)
}

func (svc *GeolocationService) Start() error {
	if redisSvc, ok := svc.Service(REDIS_SVC).(*RedisService); ok {
		svc.cache = redisSvc
	}
	return nil
}

// RegionForIP returns the region name for ip, or "" when it cannot be resolved.
// Lookup failures never fail the caller.
func (svc *GeolocationService) RegionForIP(ctx stdctx.Context, ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return ""
	}

	cacheKey := fmt.Sprintf("teensha:geolocation:%s", ip)
	if svc.cache != nil {
		if cached, err := svc.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			log.WithField("ip", ip).Debug("Geolocation cache hit")
			return cached
		}
	}

	region, err := svc.lookup(ctx, ip)
	if err != nil {
		log.WithError(err).WithField("ip", ip).Warn("Geolocation lookup failed")
		return ""
	}

	if svc.cache != nil && region != "" {
		if err := svc.cache.Set(ctx, cacheKey, []byte(region), svc.cacheExpiry); err != nil {
			log.WithError(err).WithField("ip", ip).Warn("Failed to cache geolocation result")
		}
	}
	return region
}

func (svc *GeolocationService) lookup(ctx stdctx.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/%s?fields=status,message,regionName", svc.apiURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation API returned %d", resp.StatusCode)
	}

	var result struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		RegionName string `json:"regionName"`
	}
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode geolocation response: %w", err)
	}
	if result.Status != "success" {
		return "", fmt.Errorf("geolocation lookup %s: %s", result.Status, result.Message)
	}
	return result.RegionName, nil
}
