// Package router собирает chi-маршрутизатор из явной таблицы маршрутов.
// Уровень доступа задаётся у каждого маршрута, поэтому защищённый обработчик нельзя подключить без проверки сессии.
package router

import (
	"errors"
	"fmt"
	"net/http"

	"taskScheduler/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type Auth int

const (
	Public Auth = iota
	WebSession
	APISession
)

func (a Auth) String() string {
	switch a {
	case Public:
		return "public"
	case WebSession:
		return "web"
	case APISession:
		return "api"
	default:
		return fmt.Sprintf("auth(%d)", int(a))
	}
}

type Route struct {
	Method  string
	Pattern string
	Auth    Auth
	// RateLimit: запросов в минуту с одного IP для этого маршрута, 0 значит без отдельного лимита.
	RateLimit int
	Handler   http.HandlerFunc
}

// Gates содержит проверки сессии для каждого защищённого уровня.
type Gates struct {
	Web func(http.Handler) http.Handler
	API func(http.Handler) http.Handler
}

var ErrInvalidRoute = errors.New("некорректный маршрут")

func New(routes []Route, gates Gates, global ...func(http.Handler) http.Handler) (chi.Router, error) {
	mux := chi.NewRouter()
	mux.Use(global...)

	seen := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		key := route.Method + " " + route.Pattern
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s объявлен дважды", ErrInvalidRoute, key)
		}
		seen[key] = struct{}{}

		if route.Handler == nil {
			return nil, fmt.Errorf("%w: %s без обработчика", ErrInvalidRoute, key)
		}

		var chain []func(http.Handler) http.Handler
		if route.RateLimit > 0 {
			chain = append(chain, middleware.RateLimit(route.RateLimit))
		}

		switch route.Auth {
		case Public:
		case WebSession:
			if gates.Web == nil {
				return nil, fmt.Errorf("%w: %s требует web-сессию, проверка не задана", ErrInvalidRoute, key)
			}
			chain = append(chain, gates.Web)
		case APISession:
			if gates.API == nil {
				return nil, fmt.Errorf("%w: %s требует api-сессию, проверка не задана", ErrInvalidRoute, key)
			}
			chain = append(chain, gates.API)
		default:
			return nil, fmt.Errorf("%w: %s с неизвестным уровнем доступа %s", ErrInvalidRoute, key, route.Auth)
		}

		mux.With(chain...).Method(route.Method, route.Pattern, route.Handler)
	}

	return mux, nil
}
