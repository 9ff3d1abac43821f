package handlers

import (
	"net/http"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

type ChallengeHandler struct {
	challengeSvc ChallengeServiceInterface
}

func NewChallengeHandler(challengeSvc ChallengeServiceInterface) *ChallengeHandler {
	return &ChallengeHandler{challengeSvc: challengeSvc}
}

// @Summary List challenges
// @Description Published challenges of a year, newest month first. Staff also see drafts.
// @Tags challenges
// @Produce json
// @Security Bearer
// @Param year query int false "Year, defaults to the current year"
// @Success 200 {object} shared.Response{data=[]model.Challenge}
// @Router /api/v1/challenges [get]
func (h *ChallengeHandler) ListChallenges(c *fiber.Ctx) error {
	var q dto.ChallengeListQuery
	if err := c.QueryParser(&q); err != nil {
		return shared.NewBadRequestError(err, "invalid query")
	}
	if err := q.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	challenges, err := h.challengeSvc.ListChallenges(c.UserContext(), q.Year, middleware.IsStaff(c))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, challenges)
}

// @Summary Get a challenge
// @Description A challenge with its tasks, its badge and the description rendered to HTML
// @Tags challenges
// @Produce json
// @Security Bearer
// @Param id path string true "Challenge ID"
// @Success 200 {object} shared.Response{data=dto.ChallengeDetailResponse}
// @Failure 404 {object} shared.Response
// @Router /api/v1/challenges/{id} [get]
func (h *ChallengeHandler) GetChallenge(c *fiber.Ctx) error {
	detail, err := h.challengeSvc.GetChallenge(c.UserContext(), c.Params("id"), middleware.IsStaff(c))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, detail)
}

// @Summary Create a challenge (Staff)
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.ChallengeRequest true "Challenge"
// @Success 201 {object} shared.Response{data=model.Challenge}
// @Failure 409 {object} shared.Response
// @Router /api/v1/admin/challenges [post]
func (h *ChallengeHandler) CreateChallenge(c *fiber.Ctx) error {
	var req dto.ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	challenge, err := h.challengeSvc.CreateChallenge(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Challenge created", challenge)
}

// @Summary Update a challenge (Staff)
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Challenge ID"
// @Param request body dto.ChallengeRequest true "Challenge"
// @Success 200 {object} shared.Response{data=model.Challenge}
// @Router /api/v1/admin/challenges/{id} [put]
func (h *ChallengeHandler) UpdateChallenge(c *fiber.Ctx) error {
	var req dto.ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	challenge, err := h.challengeSvc.UpdateChallenge(c.UserContext(), c.Params("id"), middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Challenge updated", challenge)
}

// @Summary Add a task (Staff)
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Challenge ID"
// @Param request body dto.TaskRequest true "Task"
// @Success 201 {object} shared.Response{data=model.Task}
// @Router /api/v1/admin/challenges/{id}/tasks [post]
func (h *ChallengeHandler) AddTask(c *fiber.Ctx) error {
	var req dto.TaskRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	task, err := h.challengeSvc.AddTask(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Task created", task)
}

// @Summary Create the challenge badge (Staff)
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Challenge ID"
// @Param request body dto.BadgeRequest true "Badge"
// @Success 201 {object} shared.Response{data=model.Badge}
// @Failure 409 {object} shared.Response
// @Router /api/v1/admin/challenges/{id}/badge [post]
func (h *ChallengeHandler) CreateBadge(c *fiber.Ctx) error {
	var req dto.BadgeRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	badge, err := h.challengeSvc.CreateBadge(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Badge created", badge)
}

// @Summary Publish a challenge (Staff)
// @Description Opens the challenge to teens and notifies them. Requires a badge.
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path string true "Challenge ID"
// @Success 200 {object} shared.Response{data=model.Challenge}
// @Failure 409 {object} shared.Response
// @Router /api/v1/admin/challenges/{id}/publish [post]
func (h *ChallengeHandler) PublishChallenge(c *fiber.Ctx) error {
	challenge, err := h.challengeSvc.PublishChallenge(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Challenge published", challenge)
}
