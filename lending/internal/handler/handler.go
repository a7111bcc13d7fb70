package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	_ "github.com/Astemirdum/library-lending/lending/swagger"
	mw "github.com/Astemirdum/library-lending/pkg/middleware"
	"github.com/Astemirdum/library-lending/pkg/validate"
)

type Handler struct {
	authSvc   AuthService
	bookSvc   BookService
	borrowSvc BorrowService
	reviewSvc ReviewService
	log       *zap.Logger
}

func New(authSvc AuthService, bookSvc BookService, borrowSvc BorrowService, reviewSvc ReviewService, log *zap.Logger) *Handler {
	return &Handler{
		authSvc:   authSvc,
		bookSvc:   bookSvc,
		borrowSvc: borrowSvc,
		reviewSvc: reviewSvc,
		log:       log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig(h.log)),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		mw.NewRateLimiter(apiRPS),
	)
	h.register(api)
	return e
}

func (h *Handler) register(api *echo.Group) {
	authn := h.Authenticate
	admin := []echo.MiddlewareFunc{h.Authenticate, RequireAdmin}

	api.POST("/auth/register", h.Register)
	api.POST("/auth/token", h.Login)
	api.GET("/auth/users/me", h.Me, authn)
	api.GET("/auth/users/check-email/:email", h.CheckEmail)
	api.GET("/auth/users", h.ListUsers, admin...)
	api.PUT("/auth/users/:userId", h.UpdateUser, admin...)
	api.DELETE("/auth/users/:userId", h.DeleteUser, admin...)

	api.GET("/books", h.ListBooks)
	api.GET("/books/:bookId", h.GetBook)
	api.POST("/books", h.CreateBook, admin...)
	api.PUT("/books/:bookId", h.UpdateBook, admin...)
	api.DELETE("/books/:bookId", h.DeleteBook, admin...)

	api.GET("/books/:bookId/reviews", h.ListBookReviews)
	api.POST("/books/:bookId/reviews", h.CreateReview, authn)
	api.GET("/books/:bookId/reviews/eligibility", h.CanReview, authn)
	api.PUT("/reviews/:reviewId", h.UpdateReview, authn)
	api.DELETE("/reviews/:reviewId", h.DeleteReview, authn)

	api.POST("/borrows", h.RequestBorrow, authn)
	api.GET("/borrows/me", h.ListMyBorrows, authn)
	api.GET("/borrows/all", h.ListAllBorrows, admin...)
	api.GET("/borrows/:borrowId/history", h.BorrowHistory, authn)
	api.PUT("/borrows/:borrowId/return", h.ReturnBorrow, authn)
	api.PUT("/borrows/:borrowId/approve", h.ApproveBorrow, admin...)
	api.PUT("/borrows/:borrowId/decline", h.DeclineBorrow, admin...)
	api.PUT("/borrows/:borrowId/admin-update", h.AdminUpdateBorrow, admin...)
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps a service error to a response. Business errors carry their
// code; anything else is a 500.
func (h *Handler) httpError(err error) error {
	var code int
	switch errs.KindOf(err) {
	case errs.KindValidation:
		code = http.StatusBadRequest
	case errs.KindUnauthorized:
		code = http.StatusUnauthorized
	case errs.KindForbidden:
		code = http.StatusForbidden
	case errs.KindNotFound:
		code = http.StatusNotFound
	case errs.KindConflict:
		code = http.StatusConflict
	case errs.KindInvariant:
		code = http.StatusUnprocessableEntity
	default:
		h.log.Error("internal", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return echo.NewHTTPError(code, errs.ErrorResponse{Message: err.Error(), Code: errs.CodeOf(err)})
}

func paramID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func bindValid(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
