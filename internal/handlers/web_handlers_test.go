package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"taskScheduler/internal/handlers"
	"taskScheduler/internal/middleware"
	"taskScheduler/internal/models/session"
	"taskScheduler/internal/models/task"
	"taskScheduler/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type webMocks struct {
	credentials *MockCredentialService
	sessions    *MockSessionService
	resets      *MockResetService
	tasks       *MockTaskService
}

func newWebRouter(t *testing.T) (http.Handler, *webMocks) {
	t.Helper()
	return newWebRouterWithCookie(t, handlers.CookieConfig{Name: "session"})
}

func newWebRouterWithCookie(t *testing.T, cookie handlers.CookieConfig) (http.Handler, *webMocks) {
	t.Helper()

	m := &webMocks{
		credentials: new(MockCredentialService),
		sessions:    new(MockSessionService),
		resets:      new(MockResetService),
		tasks:       new(MockTaskService),
	}
	h, err := handlers.NewWebHandler(m.credentials, m.sessions, m.resets, m.tasks, cookie)
	require.NoError(t, err)

	withOwner := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			next(w, r.WithContext(middleware.WithUserID(r.Context(), ownerID)))
		}
	}

	r := chi.NewRouter()
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/logout", withOwner(h.Logout))
	r.Get("/reset-password", h.ResetRequestForm)
	r.Post("/reset-password", h.RequestReset)
	r.Get("/reset-password/{token}", h.ResetPasswordForm)
	r.Post("/reset-password/{token}", h.ResetPassword)
	r.Get("/", withOwner(h.Index))
	r.Post("/add", withOwner(h.AddTask))
	r.Get("/delete/{id}", withOwner(h.DeleteTask))
	return r, m
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// followFlash переносит flash-cookie редиректа в следующий запрос
func followFlash(t *testing.T, router http.Handler, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	flash := findCookie(rec, "flash")
	require.NotNil(t, flash)

	req := httptest.NewRequest(http.MethodGet, rec.Header().Get("Location"), nil)
	req.AddCookie(flash)
	next := httptest.NewRecorder()
	router.ServeHTTP(next, req)
	return next
}

func TestWebHandler_Forms(t *testing.T) {
	router, _ := newWebRouter(t)

	for _, path := range []string{"/register", "/login", "/reset-password", "/reset-password/abc"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "<form", path)
	}
}

func TestWebHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedText   string
	}{
		{name: "success", expectedStatus: http.StatusSeeOther},
		{
			name:           "duplicate",
			err:            service.NewDuplicateUsername("bob"),
			expectedStatus: http.StatusConflict,
			expectedText:   "уже существует",
		},
		{
			name:           "empty password",
			err:            service.NewValidationError("password", "не может быть пустым"),
			expectedStatus: http.StatusBadRequest,
			expectedText:   "не может быть пустым",
		},
		{
			name:           "storage failure",
			err:            errors.New("db down"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := newWebRouter(t)
			m.credentials.On("Register", mock.Anything, "bob", "pw123").Return(int64(1), tt.err)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, postForm("/register", url.Values{"username": {"bob"}, "password": {"pw123"}}))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusSeeOther {
				assert.Equal(t, "/login", rec.Header().Get("Location"))
				page := followFlash(t, router, rec)
				assert.Contains(t, page.Body.String(), "Регистрация прошла успешно")
			}
			if tt.expectedText != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedText)
			}
			assert.NotContains(t, rec.Body.String(), "db down")
		})
	}
}

func TestWebHandler_Login(t *testing.T) {
	router, m := newWebRouter(t)
	expires := time.Now().Add(24 * time.Hour)
	m.sessions.On("Authenticate", mock.Anything, "bob", "pw123").
		Return(&session.Session{ID: "s1", UserID: 1, ExpiresAt: expires}, "signed-token", nil)
	m.sessions.On("Authenticate", mock.Anything, "bob", "wrong").
		Return(nil, "", service.NewAuthFailure())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/login", url.Values{"username": {"bob"}, "password": {"pw123"}}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := findCookie(rec, "session")
	require.NotNil(t, cookie)
	assert.Equal(t, "signed-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/login", url.Values{"username": {"bob"}, "password": {"wrong"}}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Неверное имя пользователя или пароль")
	assert.Nil(t, findCookie(rec, "session"))
}

func TestWebHandler_Logout(t *testing.T) {
	router, m := newWebRouter(t)
	m.sessions.On("EndSession", mock.Anything, "signed-token").Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "signed-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	cookie := findCookie(rec, "session")
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
	m.sessions.AssertExpectations(t)
}

func TestWebHandler_RequestReset(t *testing.T) {
	router, m := newWebRouter(t)
	m.resets.On("RequestReset", mock.Anything, "bob").Return("tok123", nil)
	m.resets.On("RequestReset", mock.Anything, "ghost").Return("", service.NewNotFound("пользователь", "ghost"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/reset-password", url.Values{"username": {"bob"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := followFlash(t, router, rec)
	assert.Contains(t, page.Body.String(), "/reset-password/tok123")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/reset-password", url.Values{"username": {"ghost"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page = followFlash(t, router, rec)
	assert.Contains(t, page.Body.String(), "не найден")
}

func TestWebHandler_ResetPassword(t *testing.T) {
	router, m := newWebRouter(t)
	m.resets.On("ResetPassword", mock.Anything, "good", "newpw").Return(nil)
	m.resets.On("ResetPassword", mock.Anything, "used", "newpw").
		Return(service.NewBusinessError(service.CodeNotFound, "Ссылка для сброса пароля недействительна или уже использована"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/reset-password/good", url.Values{"password": {"newpw"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/reset-password/used", url.Values{"password": {"newpw"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "недействительна")
}

func TestWebHandler_Index(t *testing.T) {
	router, m := newWebRouter(t)
	m.tasks.On("ListTasks", mock.Anything, ownerID).Return([]*task.Task{
		{ID: 1, Title: "Buy <milk>", Date: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "2024-01-01 09:00")
	assert.Contains(t, body, "Buy &lt;milk&gt;")
	assert.Contains(t, body, `/delete/1`)
}

func TestWebHandler_AddTask(t *testing.T) {
	router, m := newWebRouter(t)
	m.tasks.On("CreateTask", mock.Anything, ownerID, "Buy milk", "2024-01-01T09:00").Return(&task.Task{ID: 1}, nil)
	m.tasks.On("CreateTask", mock.Anything, ownerID, "", "2024-01-01T09:00").
		Return(nil, service.NewValidationError("title", "не может быть пустым"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/add", url.Values{"title": {"Buy milk"}, "date": {"2024-01-01T09:00"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, findCookie(rec, "flash"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/add", url.Values{"title": {""}, "date": {"2024-01-01T09:00"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotNil(t, findCookie(rec, "flash"))
}

func TestWebHandler_DeleteTask(t *testing.T) {
	router, m := newWebRouter(t)
	m.tasks.On("DeleteTask", mock.Anything, ownerID, int64(1)).Return(nil)
	m.tasks.On("DeleteTask", mock.Anything, ownerID, int64(2)).Return(service.NewForbidden("задача", "2"))
	m.tasks.On("ListTasks", mock.Anything, ownerID).Return([]*task.Task{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delete/1", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Nil(t, findCookie(rec, "flash"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delete/2", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	page := followFlash(t, router, rec)
	assert.Contains(t, page.Body.String(), "Нет доступа")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delete/zero", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotNil(t, findCookie(rec, "flash"))
}

func TestWebHandler_SecureFlashCookie(t *testing.T) {
	router, m := newWebRouterWithCookie(t, handlers.CookieConfig{Name: "session", Secure: true})
	m.resets.On("RequestReset", mock.Anything, "bob").Return("tok123", nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/reset-password", url.Values{"username": {"bob"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	flash := findCookie(rec, "flash")
	require.NotNil(t, flash)
	assert.True(t, flash.Secure)
	assert.True(t, flash.HttpOnly)

	// удаление flash при показе страницы тоже с флагом Secure
	next := followFlash(t, router, rec)
	cleared := findCookie(next, "flash")
	require.NotNil(t, cleared)
	assert.True(t, cleared.Secure)
	assert.Contains(t, next.Body.String(), "/reset-password/tok123")
}
