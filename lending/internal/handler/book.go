package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-lending/lending/internal/model"
)

func (h *Handler) ListBooks(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if page < 0 || size < 0 || size > 100 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid paging")
	}
	books, err := h.bookSvc.ListBooks(c.Request().Context(), page, size)
	if err != nil {
		return h.httpError(err)
	}
	if books.Items == nil {
		books.Items = []model.Book{}
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	book, err := h.bookSvc.GetBookDetail(c.Request().Context(), bookID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	book, err := h.bookSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	var req model.UpdateBookRequest
	if err = bindValid(c, &req); err != nil {
		return err
	}
	book, err := h.bookSvc.UpdateBook(c.Request().Context(), bookID, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	if err = h.bookSvc.DeleteBook(c.Request().Context(), bookID); err != nil {
		return h.httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
