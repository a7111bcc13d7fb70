package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-lending/lending/internal/model"
)

func (h *Handler) ListBookReviews(c echo.Context) error {
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	reviews, err := h.reviewSvc.ListBookReviews(c.Request().Context(), bookID)
	if err != nil {
		return h.httpError(err)
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return c.JSON(http.StatusOK, reviews)
}

func (h *Handler) CreateReview(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	var req model.CreateReviewRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	review, err := h.reviewSvc.CreateReview(c.Request().Context(), p.UserID, bookID, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *Handler) CanReview(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	ok, err := h.reviewSvc.CanReview(c.Request().Context(), p.UserID, bookID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, model.ReviewEligibility{BookID: bookID, CanReview: ok})
}

func (h *Handler) UpdateReview(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	reviewID, err := paramID(c, "reviewId")
	if err != nil {
		return err
	}
	var req model.UpdateReviewRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	review, err := h.reviewSvc.UpdateReview(c.Request().Context(), p.UserID, reviewID, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, review)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	reviewID, err := paramID(c, "reviewId")
	if err != nil {
		return err
	}
	if err = h.reviewSvc.DeleteReview(c.Request().Context(), p.UserID, reviewID); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
