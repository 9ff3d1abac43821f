package services

import (
	stdctx "context"
	"errors"
	"fmt"
	"time"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/Calstins/teensha/shared"
	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type cacheStore interface {
	Get(ctx stdctx.Context, key string) (string, error)
	Set(ctx stdctx.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx stdctx.Context, keys ...string) error
}

// ChallengeService serves the monthly challenge catalogue and routes staff edits
// through the engine. Published listings are cached in Redis.
type ChallengeService struct {
	context.DefaultService

	db         Database
	challenges *repositories.ChallengeRepository
	engine     *engine.Engine
	cache      cacheStore
	cacheTTL   time.Duration
}

const CHALLENGE_SVC = "challenge_svc"

const challengeListCachePrefix = "teensha:challenges:published:"

func (svc ChallengeService) Id() string {
	return CHALLENGE_SVC
}

func (svc *ChallengeService) Configure(ctx *context.Context) error {
	svc.cacheTTL = 5 * time.Minute
	return svc.DefaultService.Configure(ctx)
}

func (svc *ChallengeService) Start() error {
	db, err := resolveDatabase(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	if err != nil {
		return err
	}
	svc.db = db
	svc.challenges = repositories.NewChallengeRepository(db.Db())
	svc.engine = svc.Service(ENGINE_SVC).(*EngineService).Engine()
	if redisSvc, ok := svc.Service(REDIS_SVC).(*RedisService); ok {
		svc.cache = redisSvc
	}
	return nil
}

// ==================== STAFF OPERATIONS ====================

func (svc *ChallengeService) CreateChallenge(ctx stdctx.Context, staffID string, req dto.ChallengeRequest) (*model.Challenge, error) {
	challenge, err := svc.engine.CreateChallenge(ctx, challengeInput(staffID, req))
	if err != nil {
		return nil, err
	}
	svc.invalidate(ctx, challenge.Year)
	return challenge, nil
}

func (svc *ChallengeService) UpdateChallenge(ctx stdctx.Context, id, staffID string, req dto.ChallengeRequest) (*model.Challenge, error) {
	previous, err := svc.challenges.GetChallenge(ctx, id)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	challenge, err := svc.engine.UpdateChallenge(ctx, id, challengeInput(staffID, req))
	if err != nil {
		return nil, err
	}
	svc.invalidate(ctx, previous.Year, challenge.Year)
	return challenge, nil
}

func (svc *ChallengeService) AddTask(ctx stdctx.Context, challengeID string, req dto.TaskRequest) (*model.Task, error) {
	in := engine.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		TabName:     req.TabName,
		Type:        req.Type,
		IsRequired:  true,
		MaxScore:    10,
		Position:    req.Position,
		Options:     req.Options,
	}
	if req.IsRequired != nil {
		in.IsRequired = *req.IsRequired
	}
	if req.MaxScore != nil {
		in.MaxScore = *req.MaxScore
	}
	task, err := svc.engine.AddTask(ctx, challengeID, in)
	if err != nil {
		return nil, err
	}
	svc.invalidateChallenge(ctx, challengeID)
	return task, nil
}

func (svc *ChallengeService) CreateBadge(ctx stdctx.Context, challengeID string, req dto.BadgeRequest) (*model.Badge, error) {
	badge, err := svc.engine.CreateBadge(ctx, challengeID, engine.BadgeInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
	})
	if err != nil {
		return nil, err
	}
	svc.invalidateChallenge(ctx, challengeID)
	return badge, nil
}

func (svc *ChallengeService) PublishChallenge(ctx stdctx.Context, id string) (*model.Challenge, error) {
	challenge, err := svc.engine.PublishChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.invalidate(ctx, challenge.Year)
	return challenge, nil
}

// ==================== READ OPERATIONS ====================

// ListChallenges returns a year's challenges, newest month first. Teens only see
// published ones.
func (svc *ChallengeService) ListChallenges(ctx stdctx.Context, year int, includeDrafts bool) ([]model.Challenge, error) {
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	if includeDrafts {
		challenges, err := svc.challenges.ListChallenges(ctx, year, false)
		if err != nil {
			return nil, svc.db.HandleError(err)
		}
		return challenges, nil
	}

	key := fmt.Sprintf("%s%d", challengeListCachePrefix, year)
	if cached, ok := svc.cached(ctx, key); ok {
		return cached, nil
	}

	challenges, err := svc.challenges.ListChallenges(ctx, year, true)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	svc.store(ctx, key, challenges)
	return challenges, nil
}

// GetChallenge returns a challenge with its tasks and badge and the description
// rendered to HTML. Drafts are hidden from teens.
func (svc *ChallengeService) GetChallenge(ctx stdctx.Context, id string, includeDrafts bool) (*dto.ChallengeDetailResponse, error) {
	challenge, err := svc.challenges.GetChallengeDetail(ctx, id)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	if !challenge.IsPublished && !includeDrafts {
		return nil, shared.NewNotFoundError(gorm.ErrRecordNotFound, "challenge not found")
	}

	html, err := shared.RenderMarkdown(challenge.Description)
	if err != nil {
		log.WithError(err).WithField("challenge_id", id).Warn("Failed to render challenge description")
	}
	return &dto.ChallengeDetailResponse{Challenge: challenge, DescriptionHTML: string(html)}, nil
}

// ==================== CACHE ====================

func (svc *ChallengeService) cached(ctx stdctx.Context, key string) ([]model.Challenge, bool) {
	if svc.cache == nil {
		return nil, false
	}
	raw, err := svc.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	var challenges []model.Challenge
	if err := shared.JSONUnmarshal([]byte(raw), &challenges); err != nil {
		return nil, false
	}
	return challenges, true
}

func (svc *ChallengeService) store(ctx stdctx.Context, key string, challenges []model.Challenge) {
	if svc.cache == nil {
		return
	}
	payload, err := shared.JSONMarshal(challenges)
	if err != nil {
		return
	}
	if err := svc.cache.Set(ctx, key, payload, svc.cacheTTL); err != nil {
		log.WithError(err).WithField("key", key).Debug("Failed to cache challenges")
	}
}

func (svc *ChallengeService) invalidate(ctx stdctx.Context, years ...int) {
	if svc.cache == nil {
		return
	}
	keys := make([]string, 0, len(years))
	for _, year := range years {
		keys = append(keys, fmt.Sprintf("%s%d", challengeListCachePrefix, year))
	}
	if err := svc.cache.Delete(ctx, keys...); err != nil {
		log.WithError(err).Warn("Failed to invalidate challenge cache")
	}
}

func (svc *ChallengeService) invalidateChallenge(ctx stdctx.Context, challengeID string) {
	challenge, err := svc.challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).WithField("challenge_id", challengeID).Warn("Failed to load challenge for cache invalidation")
		}
		return
	}
	svc.invalidate(ctx, challenge.Year)
}

func challengeInput(staffID string, req dto.ChallengeRequest) engine.ChallengeInput {
	return engine.ChallengeInput{
		Title:       req.Title,
		Theme:       req.Theme,
		Description: req.Description,
		Year:        req.Year,
		Month:       req.Month,
		GoLiveAt:    req.GoLiveAt,
		ClosingAt:   req.ClosingAt,
		CreatedByID: staffID,
	}
}
