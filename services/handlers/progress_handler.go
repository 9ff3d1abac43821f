package handlers

import (
	"strconv"

	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

type ProgressHandler struct {
	engine  EngineInterface
	teenSvc TeenServiceInterface
}

func NewProgressHandler(engine EngineInterface, teenSvc TeenServiceInterface) *ProgressHandler {
	return &ProgressHandler{
		engine:  engine,
		teenSvc: teenSvc,
	}
}

// @Summary My progress
// @Description Progress rows for every challenge the teen has started
// @Tags progress
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.ProgressListResponse}
// @Router /api/v1/progress/me [get]
func (h *ProgressHandler) ListMine(c *fiber.Ctx) error {
	progress, err := h.teenSvc.ListProgress(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, progress)
}

// @Summary Progress on one challenge
// @Tags progress
// @Produce json
// @Security Bearer
// @Param challengeId path string true "Challenge ID"
// @Success 200 {object} shared.Response{data=model.Progress}
// @Router /api/v1/progress/challenges/{challengeId} [get]
func (h *ProgressHandler) GetChallengeProgress(c *fiber.Ctx) error {
	progress, err := h.engine.GetProgress(c.UserContext(), middleware.UserID(c), c.Params("challengeId"))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, progress)
}

// @Summary My raffle status
// @Tags raffle
// @Produce json
// @Security Bearer
// @Param year path int true "Year"
// @Success 200 {object} shared.Response{data=dto.RaffleStatusResponse}
// @Router /api/v1/raffle/me/{year} [get]
func (h *ProgressHandler) RaffleStatus(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	status, err := h.teenSvc.RaffleStatus(c.UserContext(), middleware.UserID(c), year)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, status)
}

func yearParam(c *fiber.Ctx) (int, error) {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year < 2000 || year > 9999 {
		return 0, shared.NewValidationError("year", "year must be a four digit number")
	}
	return year, nil
}
