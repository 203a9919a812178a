// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/delivery/http/response"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/usecase"
)

type registerRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone"`
	Password string  `json:"password"`
}

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Absent fields are left unchanged.
type updateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		logger: logger,
	}
}

// Register handles POST /users.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return malformedBody(err)
	}

	input, err := usecase.NewRegisterInput(req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		return err
	}

	account, err := h.uc.Register(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusCreated, response.NewAccount(account))
}

// Login handles POST /users/login.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return malformedBody(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	input, err := usecase.NewLoginInput(req.Phone, req.Password)
	if err != nil {
		return err
	}

	output, err := h.uc.Login(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.NewToken(output))
}

// RefreshToken handles POST /users/token/refresh.
func (h *AccountHandler) RefreshToken(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return malformedBody(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	input, err := usecase.NewRefreshInput(req.RefreshToken)
	if err != nil {
		return err
	}

	output, err := h.uc.RefreshAccessToken(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.NewToken(output))
}

// GetMe handles GET /users/me.
func (h *AccountHandler) GetMe(c echo.Context) error {
	account, ok := deliverycontext.Account(c)
	if !ok {
		return domainerrors.ErrTokenMissing
	}

	return c.JSON(http.StatusOK, response.NewAccount(account))
}

// List handles GET /users?offset=&limit=.
func (h *AccountHandler) List(c echo.Context) error {
	var input usecase.ListInput
	err := echo.QueryParamsBinder(c).
		Int("offset", &input.Offset).
		Int("limit", &input.Limit).
		BindError()
	if err != nil {
		return invalidQuery(err)
	}

	output, err := h.uc.List(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.NewPage(output))
}

// UpdateMe handles PUT and PATCH /users/me.
func (h *AccountHandler) UpdateMe(c echo.Context) error {
	actor, ok := deliverycontext.Account(c)
	if !ok {
		return domainerrors.ErrTokenMissing
	}

	return h.update(c, actor.ID, actor.ID)
}

// UpdateByID handles PUT and PATCH /users/:id. Only the caller's own id is accepted.
func (h *AccountHandler) UpdateByID(c echo.Context) error {
	actor, ok := deliverycontext.Account(c)
	if !ok {
		return domainerrors.ErrTokenMissing
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID <= 0 {
		return domainerrors.NewInvalidInput(domainerrors.FieldViolation{
			Field:   "id",
			Rule:    "format",
			Message: "id must be a positive integer",
		})
	}

	return h.update(c, actor.ID, targetID)
}

func (h *AccountHandler) update(c echo.Context, actorID, targetID int64) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return malformedBody(err)
	}

	input, err := usecase.NewUpdateInput(req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		return err
	}

	account, err := h.uc.UpdateProfile(c.Request().Context(), actorID, targetID, input)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.NewAccount(account))
}

// DeleteMe handles DELETE /users/me.
func (h *AccountHandler) DeleteMe(c echo.Context) error {
	actor, ok := deliverycontext.Account(c)
	if !ok {
		return domainerrors.ErrTokenMissing
	}

	if err := h.uc.Delete(c.Request().Context(), actor.ID, actor.ID); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, response.Status{Status: "ok"})
}

func malformedBody(err error) error {
	return errors.WithStack(domainerrors.NewInvalidInput(domainerrors.FieldViolation{
		Field:   "body",
		Rule:    "malformed",
		Message: bindMessage(err),
	}))
}

func invalidQuery(err error) error {
	field := "query"
	var bindErr *echo.BindingError
	if errors.As(err, &bindErr) {
		field = bindErr.Field
	}

	return domainerrors.NewInvalidInput(domainerrors.FieldViolation{
		Field:   field,
		Rule:    "format",
		Message: field + " must be an integer",
	})
}

// bindMessage keeps echo's client-facing text and drops the decoder internals.
func bindMessage(err error) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return msg
		}
	}

	return "request body could not be decoded"
}
