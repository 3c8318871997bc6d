package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"taskScheduler/internal/handlers/dto"
	"taskScheduler/internal/logger"
	"taskScheduler/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex         = "index.html"
	pageLogin         = "login.html"
	pageRegister      = "register.html"
	pageResetRequest  = "reset_request.html"
	pageResetPassword = "reset_password.html"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type pageData struct {
	Title         string
	Flash         *Flash
	Error         string
	Authenticated bool
	Username      string
	Token         string
	Tasks         []dto.TaskResponse
}

// WebHandler отдаёт HTML-страницы и обрабатывает формы.
type WebHandler struct {
	credentials CredentialService
	sessions    SessionService
	resets      ResetService
	tasks       TaskService
	cookie      CookieConfig
	pages       map[string]*template.Template
}

func NewWebHandler(credentials CredentialService, sessions SessionService, resets ResetService, tasks TaskService, cookie CookieConfig) (*WebHandler, error) {
	pages := make(map[string]*template.Template)
	for _, page := range []string{pageIndex, pageLogin, pageRegister, pageResetRequest, pageResetPassword} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("разбор шаблона %s: %w", page, err)
		}
		pages[page] = tmpl
	}

	return &WebHandler{
		credentials: credentials,
		sessions:    sessions,
		resets:      resets,
		tasks:       tasks,
		cookie:      cookie,
		pages:       pages,
	}, nil
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	data.Flash = popFlash(w, r, h.cookie.Secure)

	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Error("HTTP: Ошибка шаблона", err, zap.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *WebHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("HTTP: Ошибка Service", err,
		zap.String("request_id", middleware.GetRequestID(r.Context())))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *WebHandler) redirectWithFlash(w http.ResponseWriter, r *http.Request, to string, flash Flash) {
	setFlash(w, flash, h.cookie.Secure)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *WebHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageRegister, pageData{Title: "Регистрация"})
}

func (h *WebHandler) Register(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	_, err := h.credentials.Register(r.Context(), username, password)
	if err != nil {
		businessErr, ok := businessMessage(err)
		if !ok {
			h.internalError(w, r, err)
			return
		}
		h.render(w, r, mapBusinessErrorToHTTP(businessErr.Code), pageRegister, pageData{
			Title:    "Регистрация",
			Error:    businessErr.Message,
			Username: username,
		})
		return
	}

	h.redirectWithFlash(w, r, "/login", Flash{Kind: flashSuccess, Message: "Регистрация прошла успешно, теперь можно войти"})
}

func (h *WebHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageLogin, pageData{Title: "Вход"})
}

func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")

	sess, token, err := h.sessions.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		businessErr, ok := businessMessage(err)
		if !ok {
			h.internalError(w, r, err)
			return
		}
		h.render(w, r, mapBusinessErrorToHTTP(businessErr.Code), pageLogin, pageData{
			Title:    "Вход",
			Error:    businessErr.Message,
			Username: username,
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EndSession(r.Context(), middleware.SessionToken(r, h.cookie.Name)); err != nil {
		h.internalError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.redirectWithFlash(w, r, "/login", Flash{Kind: flashSuccess, Message: "Вы вышли из системы"})
}

func (h *WebHandler) ResetRequestForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageResetRequest, pageData{Title: "Сброс пароля"})
}

// RequestReset показывает ссылку сброса прямо в сообщении: почтовой доставки нет.
func (h *WebHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	token, err := h.resets.RequestReset(r.Context(), r.PostFormValue("username"))
	if err != nil {
		businessErr, ok := businessMessage(err)
		if !ok {
			h.internalError(w, r, err)
			return
		}
		h.redirectWithFlash(w, r, "/reset-password", Flash{Kind: flashError, Message: businessErr.Message})
		return
	}

	h.redirectWithFlash(w, r, "/reset-password", Flash{
		Kind:    flashSuccess,
		Message: "Ссылка для сброса пароля:",
		Link:    "/reset-password/" + token,
	})
}

func (h *WebHandler) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageResetPassword, pageData{
		Title: "Новый пароль",
		Token: chi.URLParam(r, "token"),
	})
}

func (h *WebHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.resets.ResetPassword(r.Context(), token, r.PostFormValue("password")); err != nil {
		businessErr, ok := businessMessage(err)
		if !ok {
			h.internalError(w, r, err)
			return
		}
		h.render(w, r, mapBusinessErrorToHTTP(businessErr.Code), pageResetPassword, pageData{
			Title: "Новый пароль",
			Error: businessErr.Message,
			Token: token,
		})
		return
	}

	h.redirectWithFlash(w, r, "/login", Flash{Kind: flashSuccess, Message: "Пароль изменён, войдите с новым паролем"})
}

func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), ownerID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, pageIndex, pageData{
		Title:         "Мои задачи",
		Authenticated: true,
		Tasks:         dto.FromTaskList(tasks),
	})
}

func (h *WebHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	_, err := h.tasks.CreateTask(r.Context(), ownerID, r.PostFormValue("title"), r.PostFormValue("date"))
	if err != nil {
		businessErr, ok := businessMessage(err)
		if !ok {
			h.internalError(w, r, err)
			return
		}
		h.redirectWithFlash(w, r, "/", Flash{Kind: flashError, Message: businessErr.Message})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *WebHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, ok := taskIDParam(r)
	if !ok {
		h.redirectWithFlash(w, r, "/", Flash{Kind: flashError, Message: "Неверный идентификатор задачи"})
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), ownerID, id); err != nil {
		businessErr, ok := businessMessage(err)
		if !ok {
			h.internalError(w, r, err)
			return
		}
		h.redirectWithFlash(w, r, "/", Flash{Kind: flashError, Message: businessErr.Message})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
