package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	engine  EngineInterface
	teenSvc TeenServiceInterface
	sweeper RaffleSweeperInterface
}

func NewAdminHandler(engine EngineInterface, teenSvc TeenServiceInterface, sweeper RaffleSweeperInterface) *AdminHandler {
	return &AdminHandler{
		engine:  engine,
		teenSvc: teenSvc,
		sweeper: sweeper,
	}
}

// @Summary Platform overview (Admin)
// @Description Counts of teens, submissions, badges and revenue for a year
// @Tags admin
// @Produce json
// @Security Bearer
// @Param year query int false "Year, defaults to the current year"
// @Success 200 {object} shared.Response{data=repositories.Overview}
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return shared.NewValidationError("year", "year must be a number")
		}
		year = parsed
	}

	overview, err := h.teenSvc.Overview(c.UserContext(), year)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Stats retrieved successfully", overview)
}

// @Summary Award a badge (Admin)
// @Description Grants a badge without purchase or completion
// @Tags admin
// @Produce json
// @Security Bearer
// @Param teenId path string true "Teen ID"
// @Param badgeId path string true "Badge ID"
// @Success 200 {object} shared.Response{data=model.TeenBadge}
// @Router /api/v1/admin/teens/{teenId}/badges/{badgeId}/award [post]
func (h *AdminHandler) AwardBadge(c *fiber.Ctx) error {
	badge, err := h.engine.AwardBadge(c.UserContext(), c.Params("teenId"), c.Params("badgeId"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Badge awarded", badge)
}

// @Summary Recompute a teen's progress (Admin)
// @Tags admin
// @Produce json
// @Security Bearer
// @Param teenId path string true "Teen ID"
// @Param challengeId path string true "Challenge ID"
// @Success 200 {object} shared.Response{data=model.Progress}
// @Router /api/v1/admin/teens/{teenId}/progress/{challengeId}/recompute [post]
func (h *AdminHandler) RecomputeProgress(c *fiber.Ctx) error {
	progress, err := h.engine.RecomputeProgress(c.UserContext(), c.Params("teenId"), c.Params("challengeId"))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, progress)
}

// @Summary Recompute a teen's raffle eligibility (Admin)
// @Tags admin
// @Produce json
// @Security Bearer
// @Param teenId path string true "Teen ID"
// @Param year path int true "Year"
// @Success 200 {object} shared.Response{data=model.RaffleEntry}
// @Router /api/v1/admin/teens/{teenId}/raffle/{year}/recompute [post]
func (h *AdminHandler) RecomputeEligibility(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	entry, err := h.engine.RecomputeEligibility(c.UserContext(), c.Params("teenId"), year)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, entry)
}

// @Summary Recompute raffle eligibility for every badge holder (Admin)
// @Tags admin
// @Produce json
// @Security Bearer
// @Param year path int true "Year"
// @Success 200 {object} shared.Response
// @Router /api/v1/admin/raffle/{year}/recompute [post]
func (h *AdminHandler) SweepEligibility(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	visited, err := h.sweeper.SweepEligibility(c.UserContext(), year)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Eligibility recomputed", fiber.Map{"teens": visited})
}

// @Summary Draw the raffle (Admin)
// @Description Picks one winner uniformly among eligible entries. A year can be drawn once.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param year path int true "Year"
// @Success 201 {object} shared.Response{data=model.RaffleDraw}
// @Failure 409 {object} shared.Response
// @Router /api/v1/admin/raffle/{year}/draw [post]
func (h *AdminHandler) DrawRaffle(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return err
	}
	draw, err := h.engine.DrawRaffle(c.UserContext(), year, middleware.UserID(c))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Raffle drawn", draw)
}
