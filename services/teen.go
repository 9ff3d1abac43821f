package services

import (
	stdctx "context"
	"time"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/Calstins/teensha/shared"
	"github.com/alphabatem/common/context"
)

// TeenService serves the read side of a teen's journey and the staff dashboards.
type TeenService struct {
	context.DefaultService

	db           Database
	users        *repositories.UserRepository
	progress     *repositories.ProgressRepository
	submissions  *repositories.SubmissionRepository
	transactions *repositories.TransactionRepository
	analytics    *repositories.AnalyticRepository
	engine       *engine.Engine
}

const TEEN_SVC = "teen_svc"

func (svc TeenService) Id() string {
	return TEEN_SVC
}

func (svc *TeenService) Start() error {
	db, err := resolveDatabase(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	if err != nil {
		return err
	}
	svc.init(db, svc.Service(ENGINE_SVC).(*EngineService).Engine())
	return nil
}

func (svc *TeenService) init(db Database, e *engine.Engine) {
	svc.db = db
	svc.users = repositories.NewUserRepository(db.Db())
	svc.progress = repositories.NewProgressRepository(db.Db())
	svc.submissions = repositories.NewSubmissionRepository(db.Db())
	svc.transactions = repositories.NewTransactionRepository(db.Db())
	svc.analytics = repositories.NewAnalyticRepository(db.Db())
	svc.engine = e
}

func (svc *TeenService) GetProfile(ctx stdctx.Context, teenID string) (*dto.TeenProfileResponse, error) {
	teen, err := svc.users.GetTeen(ctx, teenID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	return &dto.TeenProfileResponse{
		ID:        teen.ID,
		Email:     teen.Email,
		Name:      teen.Name,
		Age:       teen.Age,
		State:     teen.State,
		JoinedAt:  teen.CreatedAt,
		LastLogin: teen.LastLogin,
	}, nil
}

func (svc *TeenService) ListProgress(ctx stdctx.Context, teenID string) (*dto.ProgressListResponse, error) {
	rows, err := svc.progress.ListTeenProgress(ctx, teenID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	return &dto.ProgressListResponse{Progress: rows}, nil
}

func (svc *TeenService) ListBadges(ctx stdctx.Context, teenID string) (*dto.BadgeCollectionResponse, error) {
	badges, err := svc.progress.ListTeenBadges(ctx, teenID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	held := 0
	for _, b := range badges {
		if b.Status.Held() {
			held++
		}
	}
	return &dto.BadgeCollectionResponse{Badges: badges, Held: held}, nil
}

func (svc *TeenService) RaffleStatus(ctx stdctx.Context, teenID string, year int) (*dto.RaffleStatusResponse, error) {
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	entry, err := svc.engine.GetRaffleEntry(ctx, teenID, year)
	if err != nil {
		return nil, err
	}
	return &dto.RaffleStatusResponse{Entry: entry, Required: shared.RequiredBadgesPerYear}, nil
}

func (svc *TeenService) ListSubmissions(ctx stdctx.Context, teenID, challengeID string) ([]model.Submission, error) {
	rows, err := svc.submissions.ListTeenSubmissions(ctx, teenID, challengeID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	return rows, nil
}

func (svc *TeenService) ListTransactions(ctx stdctx.Context, teenID string) ([]model.Transaction, error) {
	rows, err := svc.transactions.ListTeenTransactions(ctx, teenID)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	return rows, nil
}

// ==================== STAFF VIEWS ====================

func (svc *TeenService) ReviewQueue(ctx stdctx.Context, q dto.ReviewQueueQuery) (*dto.SubmissionListResponse, error) {
	status := q.Status
	if status == "" {
		status = model.SubmissionPending
	}
	rows, total, err := svc.submissions.ListForReview(ctx, status, q.ChallengeID, q.Page, q.Limit)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	page, limit, _ := repositories.Page(q.Page, q.Limit)
	return &dto.SubmissionListResponse{
		Submissions: rows,
		Pagination:  dto.NewPaginationResponse(page, limit, total),
	}, nil
}

func (svc *TeenService) Overview(ctx stdctx.Context, year int) (*repositories.Overview, error) {
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	overview, err := svc.analytics.Overview(ctx, year)
	if err != nil {
		return nil, svc.db.HandleError(err)
	}
	return overview, nil
}
