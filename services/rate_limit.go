package services

import (
	stdctx "context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Calstins/teensha/dto"
	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// windowStore is the slice of RedisService the limiter needs.
type windowStore interface {
	IncrementWindow(ctx stdctx.Context, key string, window time.Duration) (int64, time.Duration, error)
	Get(ctx stdctx.Context, key string) (string, error)
	Set(ctx stdctx.Context, key string, value []byte, expiration time.Duration) error
}

type RateLimitService struct {
	context.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	store windowStore
	now   func() time.Time
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	BlockTime    time.Duration
	Message      string
	IsActive     bool
}

const RATE_LIMIT_SVC = "rate_limit_svc"

const rateLimitKeyPrefix = "teensha:ratelimit:"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *context.Context) error {
	svc.initDefaultConfigs()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.store = svc.Service(REDIS_SVC).(*RedisService)
	if svc.now == nil {
		svc.now = time.Now
	}
	return nil
}

func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*RateLimitConfig{
		"login": {
			EndpointType: "login",
			MaxRequests:  10,
			WindowSize:   15 * time.Minute,
			BlockTime:    30 * time.Minute,
			Message:      "Too many login attempts. Please try again later.",
			IsActive:     true,
		},
		"register": {
			EndpointType: "register",
			MaxRequests:  5,
			WindowSize:   15 * time.Minute,
			BlockTime:    60 * time.Minute,
			Message:      "Too many registration attempts. Please try again later.",
			IsActive:     true,
		},
		"submission": {
			EndpointType: "submission",
			MaxRequests:  30,
			WindowSize:   time.Hour,
			BlockTime:    30 * time.Minute,
			Message:      "Too many submissions. Please take a break.",
			IsActive:     true,
		},
		"purchase": {
			EndpointType: "purchase",
			MaxRequests:  10,
			WindowSize:   time.Hour,
			BlockTime:    time.Hour,
			Message:      "Too many purchase attempts. Please try again later.",
			IsActive:     true,
		},
		"api_general": {
			EndpointType: "api_general",
			MaxRequests:  1000,
			WindowSize:   time.Hour,
			BlockTime:    time.Hour,
			Message:      "Too many requests. Please slow down.",
			IsActive:     true,
		},
	}
}

// SetConfig overrides the limits of one endpoint type.
func (svc *RateLimitService) SetConfig(config RateLimitConfig) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.configs[config.EndpointType] = &config
}

func (svc *RateLimitService) config(endpointType string) (*RateLimitConfig, bool) {
	svc.mutex.RLock()
	defer svc.mutex.RUnlock()
	config, exists := svc.configs[endpointType]
	if !exists || !config.IsActive {
		return nil, false
	}
	c := *config
	return &c, true
}

// IsAllowed counts one request for identifier against the endpoint's fixed window.
// Exceeding the limit blocks the identifier for BlockTime.
func (svc *RateLimitService) IsAllowed(ctx stdctx.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	config, ok := svc.config(endpointType)
	if !ok {
		return true, &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	now := svc.now()
	blockKey := fmt.Sprintf("%sblock:%s:%s", rateLimitKeyPrefix, endpointType, identifier)
	blocked, err := svc.store.Get(ctx, blockKey)
	if err != nil {
		return false, nil, err
	}
	if blocked != "" {
		if unix, err := strconv.ParseInt(blocked, 10, 64); err == nil {
			until := time.Unix(unix, 0)
			return false, &dto.RateLimitInfo{Limit: config.MaxRequests, ResetTime: &until, BlockedUntil: &until}, nil
		}
	}

	count, left, err := svc.store.IncrementWindow(ctx, fmt.Sprintf("%s%s:%s", rateLimitKeyPrefix, endpointType, identifier), config.WindowSize)
	if err != nil {
		return false, nil, err
	}

	if count > int64(config.MaxRequests) {
		until := now.Add(config.BlockTime)
		if err := svc.store.Set(ctx, blockKey, []byte(strconv.FormatInt(until.Unix(), 10)), config.BlockTime); err != nil {
			return false, nil, err
		}
		log.WithFields(log.Fields{
			"endpoint":      endpointType,
			"identifier":    identifier,
			"blocked_until": until,
		}).Warn("Rate limit exceeded")
		return false, &dto.RateLimitInfo{Limit: config.MaxRequests, ResetTime: &until, BlockedUntil: &until}, nil
	}

	reset := now.Add(left)
	return true, &dto.RateLimitInfo{
		Allowed:   true,
		Limit:     config.MaxRequests,
		Remaining: config.MaxRequests - int(count),
		ResetTime: &reset,
	}, nil
}

func (svc *RateLimitService) Message(endpointType string) string {
	if config, ok := svc.config(endpointType); ok && config.Message != "" {
		return config.Message
	}
	return "Too many requests. Please try again later."
}
