package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-lending/lending/internal/model"
)

func (h *Handler) RequestBorrow(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	var req model.CreateBorrowRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	borrow, err := h.borrowSvc.RequestBorrow(c.Request().Context(), p.UserID, req.BookID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, borrow)
}

func (h *Handler) ReturnBorrow(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	borrowID, err := paramID(c, "borrowId")
	if err != nil {
		return err
	}
	borrow, err := h.borrowSvc.ReturnBorrow(c.Request().Context(), p.UserID, borrowID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, borrow)
}

func (h *Handler) ApproveBorrow(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	borrowID, err := paramID(c, "borrowId")
	if err != nil {
		return err
	}
	borrow, err := h.borrowSvc.ApproveBorrow(c.Request().Context(), p.UserID, borrowID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, borrow)
}

func (h *Handler) DeclineBorrow(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	borrowID, err := paramID(c, "borrowId")
	if err != nil {
		return err
	}
	borrow, err := h.borrowSvc.DeclineBorrow(c.Request().Context(), p.UserID, borrowID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, borrow)
}

func (h *Handler) AdminUpdateBorrow(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	borrowID, err := paramID(c, "borrowId")
	if err != nil {
		return err
	}
	var req model.AdminUpdateBorrowRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	borrow, err := h.borrowSvc.AdminOverrideBorrow(c.Request().Context(), p.UserID, borrowID, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, borrow)
}

func (h *Handler) ListMyBorrows(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.borrowSvc.ListUserBorrows(c.Request().Context(), p.UserID)
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []model.BorrowDetail{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListAllBorrows(c echo.Context) error {
	items, err := h.borrowSvc.ListAllBorrows(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []model.BorrowDetail{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) BorrowHistory(c echo.Context) error {
	p, err := mustPrincipal(c)
	if err != nil {
		return err
	}
	borrowID, err := paramID(c, "borrowId")
	if err != nil {
		return err
	}
	items, err := h.borrowSvc.BorrowHistory(c.Request().Context(), p, borrowID)
	if err != nil {
		return h.httpError(err)
	}
	if items == nil {
		items = []model.BorrowHistory{}
	}
	return c.JSON(http.StatusOK, items)
}
