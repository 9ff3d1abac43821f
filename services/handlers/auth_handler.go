package handlers

import (
	"net/http"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authSvc AuthServiceInterface
	teenSvc TeenServiceInterface
}

func NewAuthHandler(authSvc AuthServiceInterface, teenSvc TeenServiceInterface) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		teenSvc: teenSvc,
	}
}

// @Summary Register a teen
// @Description Create a teen account and return an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param registerRequest body dto.RegisterTeenRequest true "Registration details"
// @Success 201 {object} shared.Response{data=dto.LoginResponse}
// @Failure 409 {object} shared.Response
// @Router /api/v1/auth/teens/register [post]
func (h *AuthHandler) RegisterTeen(c *fiber.Ctx) error {
	var req dto.RegisterTeenRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	req.ClientIP = middleware.ClientIP(c)
	resp, err := h.authSvc.RegisterTeen(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Teen registered successfully", resp)
}

// @Summary Teen login
// @Description Authenticate a teen and return an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body dto.LoginRequest true "Login credentials"
// @Success 200 {object} shared.Response{data=dto.LoginResponse}
// @Failure 401 {object} shared.Response
// @Router /api/v1/auth/teens/login [post]
func (h *AuthHandler) LoginTeen(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	resp, err := h.authSvc.LoginTeen(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}

// @Summary Staff login
// @Description Authenticate a staff member or admin
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body dto.LoginRequest true "Login credentials"
// @Success 200 {object} shared.Response{data=dto.LoginResponse}
// @Failure 401 {object} shared.Response
// @Router /api/v1/auth/staff/login [post]
func (h *AuthHandler) LoginStaff(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	resp, err := h.authSvc.LoginStaff(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}

// @Summary Current teen profile
// @Tags teens
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.TeenProfileResponse}
// @Router /api/v1/teens/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	profile, err := h.teenSvc.GetProfile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, profile)
}
