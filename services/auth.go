package services

import (
	stdctx "context"
	"errors"
	"time"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/Calstins/teensha/shared"
	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	context.DefaultService

	db     Database
	users  *repositories.UserRepository
	jwtSvc *JWTService
	geo    regionResolver
}

type regionResolver interface {
	RegionForIP(ctx stdctx.Context, ip string) string
}

const AUTH_SVC = "auth_svc"

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Start() error {
	db, err := resolveDatabase(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	if err != nil {
		return err
	}
	svc.db = db
	svc.users = repositories.NewUserRepository(db.Db())
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	if geoSvc, ok := svc.Service(GEOLOCATION_SVC).(*GeolocationService); ok {
		svc.geo = geoSvc
	}
	return nil
}

func (svc *AuthService) RegisterTeen(ctx stdctx.Context, req dto.RegisterTeenRequest) (*dto.LoginResponse, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to hash password")
	}

	state := req.State
	if state == "" && svc.geo != nil {
		state = svc.geo.RegionForIP(ctx, req.ClientIP)
	}

	now := time.Now()
	teen := &model.Teen{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      req.Name,
		Password:  string(hashed),
		Age:       req.Age,
		State:     state,
		IsActive:  true,
		LastLogin: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.users.CreateTeen(ctx, teen); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, shared.NewConflictError(err, "email is already registered")
		}
		return nil, svc.db.HandleError(err)
	}

	log.WithField("teen_id", teen.ID).Info("Teen registered")
	return svc.issue(teen.ID, teen.Email, teen.Name, shared.RoleTeen)
}

func (svc *AuthService) LoginTeen(ctx stdctx.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	teen, err := svc.users.GetTeenByEmail(ctx, req.Email)
	if err != nil {
		return nil, svc.loginFailure(err)
	}
	if !teen.IsActive {
		return nil, shared.NewForbiddenError(nil, "account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(teen.Password), []byte(req.Password)); err != nil {
		return nil, shared.NewUnauthorizedError(nil, "invalid email or password")
	}

	if err := svc.users.UpdateTeenLastLogin(ctx, teen.ID); err != nil {
		log.WithError(err).WithField("teen_id", teen.ID).Warn("Failed to update last login")
	}
	return svc.issue(teen.ID, teen.Email, teen.Name, shared.RoleTeen)
}

func (svc *AuthService) LoginStaff(ctx stdctx.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	staff, err := svc.users.GetStaffByEmail(ctx, req.Email)
	if err != nil {
		return nil, svc.loginFailure(err)
	}
	if !staff.IsActive {
		return nil, shared.NewForbiddenError(nil, "account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.Password), []byte(req.Password)); err != nil {
		return nil, shared.NewUnauthorizedError(nil, "invalid email or password")
	}

	if err := svc.users.UpdateStaffLastLogin(ctx, staff.ID); err != nil {
		log.WithError(err).WithField("staff_id", staff.ID).Warn("Failed to update last login")
	}
	return svc.issue(staff.ID, staff.Email, staff.Name, string(staff.Role))
}

// loginFailure hides whether the email exists.
func (svc *AuthService) loginFailure(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewUnauthorizedError(nil, "invalid email or password")
	}
	return svc.db.HandleError(err)
}

func (svc *AuthService) issue(id, email, name, role string) (*dto.LoginResponse, error) {
	tokens, err := svc.jwtSvc.GenerateTokenPair(id, role)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to issue token")
	}
	return &dto.LoginResponse{
		User:   dto.Principal{ID: id, Email: email, Name: name, Role: role},
		Tokens: *tokens,
	}, nil
}

func (svc *AuthService) RequiredAuth() fiber.Handler {
	return middleware.RequiredAuth(svc.jwtSvc)
}

func (svc *AuthService) RequireRole(roles ...string) fiber.Handler {
	return middleware.RequireRole(roles...)
}
