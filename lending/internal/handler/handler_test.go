package handler_test

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/lending/internal/errs"
	"github.com/Astemirdum/library-lending/lending/internal/handler"
	"github.com/Astemirdum/library-lending/lending/internal/model"

	service_mocks "github.com/Astemirdum/library-lending/lending/internal/handler/mocks"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

type mocks struct {
	auth   *service_mocks.MockAuthService
	book   *service_mocks.MockBookService
	borrow *service_mocks.MockBorrowService
	review *service_mocks.MockReviewService
}

func newRouter(t *testing.T) (*echo.Echo, mocks) {
	t.Helper()
	c := gomock.NewController(t)
	m := mocks{
		auth:   service_mocks.NewMockAuthService(c),
		book:   service_mocks.NewMockBookService(c),
		borrow: service_mocks.NewMockBorrowService(c),
		review: service_mocks.NewMockReviewService(c),
	}
	log := zap.NewExample().Named("test")
	h := handler.New(m.auth, m.book, m.borrow, m.review, log)
	return h.NewRouter(), m
}

var (
	member = model.Principal{UserID: 7, Role: model.RoleUser, IsActive: true}
	admin  = model.Principal{UserID: 1, Role: model.RoleAdmin, IsActive: true}
)

// identify wires the two test tokens to their principals.
func identify(a *service_mocks.MockAuthService) {
	a.EXPECT().Identify(gomock.Any(), userToken).Return(member, nil).AnyTimes()
	a.EXPECT().Identify(gomock.Any(), adminToken).Return(admin, nil).AnyTimes()
}

func do(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, http.NoBody)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	return w
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	e, _ := newRouter(t)
	w := do(e, http.MethodGet, "/manage/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestHandler_Authenticate(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	tests := []struct {
		name         string
		header       string
		mockBehavior func(a *service_mocks.MockAuthService)
		response     response
	}{
		{
			name:         "no header",
			mockBehavior: func(a *service_mocks.MockAuthService) {},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"No Authorization Header"}`,
			},
		},
		{
			name:         "not bearer",
			header:       "Basic abc",
			mockBehavior: func(a *service_mocks.MockAuthService) {},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"Invalid Authorization Header"}`,
			},
		},
		{
			name:   "bad token",
			header: "Bearer nope",
			mockBehavior: func(a *service_mocks.MockAuthService) {
				a.EXPECT().Identify(gomock.Any(), "nope").Return(model.Principal{}, errs.ErrUnauthenticated)
			},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"could not validate credentials","code":"invalid_token"}`,
			},
		},
		{
			name:   "inactive",
			header: "Bearer old",
			mockBehavior: func(a *service_mocks.MockAuthService) {
				a.EXPECT().Identify(gomock.Any(), "old").Return(model.Principal{}, errs.ErrInactiveUser)
			},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"message":"inactive user","code":"inactive_user"}`,
			},
		},
		{
			name:   "ok",
			header: "Bearer " + userToken,
			mockBehavior: func(a *service_mocks.MockAuthService) {
				identify(a)
				a.EXPECT().GetUser(gomock.Any(), member.UserID).Return(model.User{
					ID: member.UserID, Email: "a@b.c", FullName: "A", Role: model.RoleUser, IsActive: true,
				}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":7,"email":"a@b.c","full_name":"A","role":"user","is_active":true,"created_at":"0001-01-01T00:00:00Z"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			tt.mockBehavior(m.auth)

			r := httptest.NewRequest(http.MethodGet, "/api/v1/auth/users/me", http.NoBody)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_AdminRoutesRequireAdmin(t *testing.T) {
	t.Parallel()
	routes := []struct{ method, target, body string }{
		{http.MethodGet, "/api/v1/auth/users", ""},
		{http.MethodPut, "/api/v1/auth/users/3", `{"is_active":false}`},
		{http.MethodDelete, "/api/v1/auth/users/3", ""},
		{http.MethodPost, "/api/v1/books", `{"title":"x","amount":1}`},
		{http.MethodPut, "/api/v1/books/3", `{"amount":1}`},
		{http.MethodDelete, "/api/v1/books/3", ""},
		{http.MethodGet, "/api/v1/borrows/all", ""},
		{http.MethodPut, "/api/v1/borrows/3/approve", ""},
		{http.MethodPut, "/api/v1/borrows/3/decline", ""},
		{http.MethodPut, "/api/v1/borrows/3/admin-update", `{"status":"dikembalikan"}`},
	}
	e, m := newRouter(t)
	identify(m.auth)
	for _, rt := range routes {
		w := do(e, rt.method, rt.target, userToken, rt.body)
		require.Equal(t, http.StatusForbidden, w.Code, rt.target)
		require.Equal(t, `{"message":"admin role required","code":"admin_required"}`, strings.Trim(w.Body.String(), "\n"))
	}
}

func TestHandler_RequestBorrow(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	tests := []struct {
		name         string
		body         string
		mockBehavior func(b *service_mocks.MockBorrowService)
		response     response
	}{
		{
			name: "ok",
			body: `{"book_id":3}`,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().RequestBorrow(gomock.Any(), member.UserID, 3).
					Return(model.Borrow{ID: 11, BookID: 3, UserID: member.UserID, Status: model.StatusPending}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"id":11,"book_id":3,"user_id":7,"status":"menunggu","created_at":"0001-01-01T00:00:00Z","borrow_date":null,"return_date":null}`,
			},
		},
		{
			name:         "missing book",
			body:         `{}`,
			mockBehavior: func(b *service_mocks.MockBorrowService) {},
			response:     response{expectedCode: http.StatusBadRequest},
		},
		{
			name: "active borrow",
			body: `{"book_id":3}`,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().RequestBorrow(gomock.Any(), member.UserID, 3).Return(model.Borrow{}, errs.ErrUserHasActiveBorrow)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"user already has an active borrow","code":"user_has_active_borrow"}`,
			},
		},
		{
			name: "unknown book",
			body: `{"book_id":3}`,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().RequestBorrow(gomock.Any(), member.UserID, 3).Return(model.Borrow{}, errs.ErrBookNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"book not found","code":"book_not_found"}`,
			},
		},
		{
			name: "internal",
			body: `{"book_id":3}`,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().RequestBorrow(gomock.Any(), member.UserID, 3).Return(model.Borrow{}, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			identify(m.auth)
			tt.mockBehavior(m.borrow)

			w := do(e, http.MethodPost, "/api/v1/borrows", userToken, tt.body)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_BorrowTransitions(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	tests := []struct {
		name         string
		method       string
		target       string
		token        string
		body         string
		mockBehavior func(b *service_mocks.MockBorrowService)
		response     response
	}{
		{
			name:   "approve without stock declines",
			method: http.MethodPut,
			target: "/api/v1/borrows/11/approve",
			token:  adminToken,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().ApproveBorrow(gomock.Any(), admin.UserID, 11).
					Return(model.Borrow{ID: 11, BookID: 3, UserID: 7, Status: model.StatusDeclined}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":11,"book_id":3,"user_id":7,"status":"ditolak","created_at":"0001-01-01T00:00:00Z","borrow_date":null,"return_date":null}`,
			},
		},
		{
			name:   "decline twice",
			method: http.MethodPut,
			target: "/api/v1/borrows/11/decline",
			token:  adminToken,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().DeclineBorrow(gomock.Any(), admin.UserID, 11).Return(model.Borrow{}, errs.ErrInvalidTransition)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"invalid status transition","code":"invalid_transition"}`,
			},
		},
		{
			name:   "return foreign borrow",
			method: http.MethodPut,
			target: "/api/v1/borrows/11/return",
			token:  userToken,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().ReturnBorrow(gomock.Any(), member.UserID, 11).Return(model.Borrow{}, errs.ErrBorrowNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"borrow not found","code":"borrow_not_found"}`,
			},
		},
		{
			name:   "override to borrowed without stock",
			method: http.MethodPut,
			target: "/api/v1/borrows/11/admin-update",
			token:  adminToken,
			body:   `{"status":"dipinjam"}`,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().AdminOverrideBorrow(gomock.Any(), admin.UserID, 11,
					model.AdminUpdateBorrowRequest{Status: model.StatusBorrowed}).
					Return(model.Borrow{}, errs.ErrBookNotAvailable)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"book not available","code":"book_not_available"}`,
			},
		},
		{
			name:         "override to pending rejected",
			method:       http.MethodPut,
			target:       "/api/v1/borrows/11/admin-update",
			token:        adminToken,
			body:         `{"status":"menunggu"}`,
			mockBehavior: func(b *service_mocks.MockBorrowService) {},
			response:     response{expectedCode: http.StatusBadRequest},
		},
		{
			name:         "bad id",
			method:       http.MethodPut,
			target:       "/api/v1/borrows/abc/return",
			token:        userToken,
			mockBehavior: func(b *service_mocks.MockBorrowService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"invalid borrowId"}`,
			},
		},
		{
			name:   "my borrows empty",
			method: http.MethodGet,
			target: "/api/v1/borrows/me",
			token:  userToken,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().ListUserBorrows(gomock.Any(), member.UserID).Return(nil, nil)
			},
			response: response{expectedCode: http.StatusOK, expectedBody: `[]`},
		},
		{
			name:   "history hidden from others",
			method: http.MethodGet,
			target: "/api/v1/borrows/11/history",
			token:  userToken,
			mockBehavior: func(b *service_mocks.MockBorrowService) {
				b.EXPECT().BorrowHistory(gomock.Any(), member, 11).Return(nil, errs.ErrBorrowNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"borrow not found","code":"borrow_not_found"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			identify(m.auth)
			tt.mockBehavior(m.borrow)

			w := do(e, tt.method, tt.target, tt.token, tt.body)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_Users(t *testing.T) {
	t.Parallel()
	t.Run("last admin", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		m.auth.EXPECT().DeleteUser(gomock.Any(), admin.UserID).Return(errs.ErrLastAdmin)

		w := do(e, http.MethodDelete, "/api/v1/auth/users/1", adminToken, "")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, `{"message":"at least one active admin is required","code":"last_admin_protection"}`,
			strings.Trim(w.Body.String(), "\n"))
	})
	t.Run("demote", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		role := model.RoleUser
		m.auth.EXPECT().UpdateUser(gomock.Any(), 3, model.UpdateUserRequest{Role: &role}).
			Return(model.User{ID: 3, Email: "x@y.z", FullName: "X", Role: model.RoleUser, IsActive: true}, nil)

		w := do(e, http.MethodPut, "/api/v1/auth/users/3", adminToken, `{"role":"user"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"role":"user"`)
	})
	t.Run("register taken", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		req := model.RegisterRequest{Email: "x@y.z", FullName: "X", Password: "password1"}
		m.auth.EXPECT().Register(gomock.Any(), req).Return(model.User{}, errs.ErrEmailTaken)

		w := do(e, http.MethodPost, "/api/v1/auth/register", "", `{"email":"x@y.z","full_name":"X","password":"password1"}`)
		require.Equal(t, http.StatusConflict, w.Code)
	})
	t.Run("login", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		m.auth.EXPECT().Login(gomock.Any(), model.LoginRequest{Email: "x@y.z", Password: "password1"}).
			Return(model.TokenResponse{AccessToken: "t", TokenType: "bearer"}, nil)

		w := do(e, http.MethodPost, "/api/v1/auth/token", "", `{"email":"x@y.z","password":"password1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `{"access_token":"t","token_type":"bearer"}`, strings.Trim(w.Body.String(), "\n"))
	})
}

func TestHandler_Books(t *testing.T) {
	t.Parallel()
	t.Run("list", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		m.book.EXPECT().ListBooks(gomock.Any(), 1, 10).Return(model.ListBooks{
			Paging: model.Paging{Page: 1, PageSize: 10},
		}, nil)

		w := do(e, http.MethodGet, "/api/v1/books?page=1&size=10", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `{"page":1,"page_size":10,"total_elements":0,"items":[]}`, strings.Trim(w.Body.String(), "\n"))
	})
	t.Run("bad paging", func(t *testing.T) {
		t.Parallel()
		e, _ := newRouter(t)
		w := do(e, http.MethodGet, "/api/v1/books?size=1000", "", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("create negative amount", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		w := do(e, http.MethodPost, "/api/v1/books", adminToken, `{"title":"x","amount":-1}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("create", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		m.book.EXPECT().CreateBook(gomock.Any(), model.CreateBookRequest{Title: "Go", Amount: 2}).
			Return(model.Book{ID: 5, Title: "Go", Amount: 2}, nil)

		w := do(e, http.MethodPost, "/api/v1/books", adminToken, `{"title":"Go","amount":2}`)
		require.Equal(t, http.StatusCreated, w.Code)
		require.Contains(t, w.Body.String(), `"amount":2`)
	})
	t.Run("delete missing", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		m.book.EXPECT().DeleteBook(gomock.Any(), 5).Return(errs.ErrBookNotFound)

		w := do(e, http.MethodDelete, "/api/v1/books/5", adminToken, "")
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_Reviews(t *testing.T) {
	t.Parallel()
	t.Run("not returned yet", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		m.review.EXPECT().CreateReview(gomock.Any(), member.UserID, 3, model.CreateReviewRequest{Score: 4}).
			Return(model.Review{}, errs.ErrReviewNotAllowed)

		w := do(e, http.MethodPost, "/api/v1/books/3/reviews", userToken, `{"score":4}`)
		require.Equal(t, http.StatusForbidden, w.Code)
		require.Equal(t, `{"message":"book must be borrowed and returned before review","code":"review_not_allowed"}`,
			strings.Trim(w.Body.String(), "\n"))
	})
	t.Run("score out of range", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		w := do(e, http.MethodPost, "/api/v1/books/3/reviews", userToken, `{"score":6}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("eligibility", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		m.review.EXPECT().CanReview(gomock.Any(), member.UserID, 3).Return(true, nil)

		w := do(e, http.MethodGet, "/api/v1/books/3/reviews/eligibility", userToken, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `{"book_id":3,"can_review":true}`, strings.Trim(w.Body.String(), "\n"))
	})
	t.Run("delete foreign", func(t *testing.T) {
		t.Parallel()
		e, m := newRouter(t)
		identify(m.auth)
		m.review.EXPECT().DeleteReview(gomock.Any(), member.UserID, 9).Return(errs.ErrNotOwner)

		w := do(e, http.MethodDelete, "/api/v1/reviews/9", userToken, "")
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandler_CheckEmail(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	tests := []struct {
		name         string
		email        string
		mockBehavior func(a *service_mocks.MockAuthService, email string)
		response     response
	}{
		{
			name:  "taken",
			email: "Reader@Example.com",
			mockBehavior: func(a *service_mocks.MockAuthService, email string) {
				a.EXPECT().EmailExists(gomock.Any(), email).Return(true, nil)
			},
			response: response{expectedCode: http.StatusOK, expectedBody: `{"exists":true}`},
		},
		{
			name:  "free",
			email: "new@example.com",
			mockBehavior: func(a *service_mocks.MockAuthService, email string) {
				a.EXPECT().EmailExists(gomock.Any(), email).Return(false, nil)
			},
			response: response{expectedCode: http.StatusOK, expectedBody: `{"exists":false}`},
		},
		{
			name:  "internal",
			email: "x@example.com",
			mockBehavior: func(a *service_mocks.MockAuthService, email string) {
				a.EXPECT().EmailExists(gomock.Any(), email).Return(false, errors.New("db internal"))
			},
			response: response{expectedCode: http.StatusInternalServerError, expectedBody: `{"message":"db internal"}`},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			tt.mockBehavior(m.auth, tt.email)

			w := do(e, http.MethodGet, "/api/v1/auth/users/check-email/"+tt.email, "", "")

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_SwaggerCoversRoutes(t *testing.T) {
	t.Parallel()
	e, _ := newRouter(t)

	raw, err := swag.ReadDoc("swagger")
	require.NoError(t, err)
	var doc struct {
		BasePath string                                    `json:"basePath"`
		Paths    map[string]map[string]jsoniter.RawMessage `json:"paths"`
	}
	require.NoError(t, jsoniter.ConfigFastest.UnmarshalFromString(raw, &doc))
	require.Equal(t, "/api/v1", doc.BasePath)

	methods := map[string]bool{http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodDelete: true}
	param := regexp.MustCompile(`:(\w+)`)
	documented := 0
	for _, rt := range e.Routes() {
		if !methods[rt.Method] || !strings.HasPrefix(rt.Path, doc.BasePath+"/") || strings.HasSuffix(rt.Path, "*") {
			continue
		}
		path := param.ReplaceAllString(strings.TrimPrefix(rt.Path, doc.BasePath), "{$1}")
		ops, ok := doc.Paths[path]
		require.True(t, ok, "undocumented path %s", path)
		_, ok = ops[strings.ToLower(rt.Method)]
		require.True(t, ok, "undocumented %s %s", rt.Method, path)
		documented++
	}
	require.Positive(t, documented)
}
