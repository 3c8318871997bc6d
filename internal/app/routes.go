package app

import (
	"net/http"

	"taskScheduler/internal/handlers"
	"taskScheduler/internal/router"
)

func routes(web *handlers.WebHandler, api *handlers.APIHandler, authRateLimit int) []router.Route {
	return []router.Route{
		// страницы и формы входа
		{Method: http.MethodGet, Pattern: "/register", Auth: router.Public, Handler: web.RegisterForm},
		{Method: http.MethodPost, Pattern: "/register", Auth: router.Public, RateLimit: authRateLimit, Handler: web.Register},
		{Method: http.MethodGet, Pattern: "/login", Auth: router.Public, Handler: web.LoginForm},
		{Method: http.MethodPost, Pattern: "/login", Auth: router.Public, RateLimit: authRateLimit, Handler: web.Login},
		{Method: http.MethodGet, Pattern: "/logout", Auth: router.WebSession, Handler: web.Logout},
		{Method: http.MethodGet, Pattern: "/reset-password", Auth: router.Public, Handler: web.ResetRequestForm},
		{Method: http.MethodPost, Pattern: "/reset-password", Auth: router.Public, RateLimit: authRateLimit, Handler: web.RequestReset},
		{Method: http.MethodGet, Pattern: "/reset-password/{token}", Auth: router.Public, Handler: web.ResetPasswordForm},
		{Method: http.MethodPost, Pattern: "/reset-password/{token}", Auth: router.Public, RateLimit: authRateLimit, Handler: web.ResetPassword},

		// задачи в HTML
		{Method: http.MethodGet, Pattern: "/", Auth: router.WebSession, Handler: web.Index},
		{Method: http.MethodPost, Pattern: "/add", Auth: router.WebSession, Handler: web.AddTask},
		{Method: http.MethodGet, Pattern: "/delete/{id}", Auth: router.WebSession, Handler: web.DeleteTask},

		// JSON API
		{Method: http.MethodGet, Pattern: "/api/tasks", Auth: router.APISession, Handler: api.ListTasks},
		{Method: http.MethodPost, Pattern: "/api/task", Auth: router.APISession, Handler: api.CreateTask},
		{Method: http.MethodDelete, Pattern: "/api/task/{id}", Auth: router.APISession, Handler: api.DeleteTask},

		{Method: http.MethodGet, Pattern: "/health", Auth: router.Public, Handler: api.HealthCheck},
	}
}
