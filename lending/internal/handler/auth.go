package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/model"
	mw "github.com/Astemirdum/library-lending/pkg/middleware"
)

const principalKey = "principal"

// Authenticate resolves the bearer token into a principal stored on the context.
func (h *Handler) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := mw.BearerToken(c)
		if err != nil {
			return err
		}
		p, err := h.authSvc.Identify(c.Request().Context(), token)
		if err != nil {
			return h.httpError(err)
		}
		c.Set(principalKey, p)
		return next(c)
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := principal(c)
		if !ok || !p.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, errs.ErrorResponse{
				Message: errs.ErrAdminRequired.Error(),
				Code:    errs.ErrAdminRequired.Code,
			})
		}
		return next(c)
	}
}

func principal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

func mustPrincipal(c echo.Context) (model.Principal, error) {
	p, ok := principal(c)
	if !ok {
		return model.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return p, nil
}

func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	user, err := h.authSvc.Register(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	resp, err := h.authSvc.Login(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Me(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	user, err := h.authSvc.GetUser(c.Request().Context(), p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) CheckEmail(c echo.Context) error {
	email := c.Param("email")
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty email")
	}
	exists, err := h.authSvc.EmailExists(c.Request().Context(), email)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, model.EmailExistsResponse{Exists: exists})
}

func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.authSvc.ListUsers(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	var req model.UpdateUserRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	user, err := h.authSvc.UpdateUser(c.Request().Context(), userID, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	if err = h.authSvc.DeleteUser(c.Request().Context(), userID); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
