package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taskScheduler/internal/config"
	"taskScheduler/internal/handlers"
	"taskScheduler/internal/logger"
	"taskScheduler/internal/middleware"
	"taskScheduler/internal/repository/inmemory"
	"taskScheduler/internal/repository/postgres"
	"taskScheduler/internal/repository/sessions"
	"taskScheduler/internal/repository/sqlite"
	"taskScheduler/internal/router"
	"taskScheduler/internal/security"
	"taskScheduler/internal/service"
	"taskScheduler/internal/worker"

	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Backend хранит пользователей и задачи и умеет закрываться.
type Backend interface {
	service.UserRepository
	service.TaskRepository
	io.Closer
}

type sessionBackend interface {
	service.SessionStore
	io.Closer
}

type App struct {
	config   *config.Config
	server   *http.Server
	handler  http.Handler
	backend  Backend
	sessions sessionBackend
	sweeper  *worker.Sweeper

	shutdowns []func() // выполняются в обратном порядке при остановке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStorage(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}

	if err := a.initHTTP(); err != nil {
		a.Shutdown()
		return nil, err
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("session_store", a.config.Session.Store),
	)
	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	backend, err := openBackend(ctx, a.config)
	if err != nil {
		return err
	}
	a.backend = backend
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища...")
		if err := backend.Close(); err != nil {
			logger.Error("Ошибка закрытия хранилища", err)
		}
	})

	store, err := openSessionStore(a.config.Session)
	if err != nil {
		return err
	}
	a.sessions = store
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища сессий...")
		if err := store.Close(); err != nil {
			logger.Error("Ошибка закрытия хранилища сессий", err)
		}
	})

	a.sweeper = worker.NewSweeper(store, backend, a.config.Session.SweepInterval)
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Repository.Type {
	case config.RepositorySQLite:
		storage, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return storage, nil
	case config.RepositoryPostgres:
		storage, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := storage.Migrate(ctx); err != nil {
			storage.Close()
			return nil, fmt.Errorf("миграции postgres: %w", err)
		}
		return storage, nil
	case config.RepositoryInMemory:
		return inmemory.New(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип репозитория %q", cfg.Repository.Type)
	}
}

func openSessionStore(cfg config.SessionConfig) (sessionBackend, error) {
	switch cfg.Store {
	case config.SessionStoreBolt:
		store, err := sessions.NewBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("хранилище сессий: %w", err)
		}
		return store, nil
	case config.SessionStoreMemory:
		return sessions.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("неизвестное хранилище сессий %q", cfg.Store)
	}
}

func (a *App) initHTTP() error {
	cfg := a.config

	hasher, err := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("хеширование паролей: %w", err)
	}
	signer := security.NewSessionSigner(cfg.Session.Secret)

	credentials := service.NewCredentialService(a.backend, hasher)
	sessionService := service.NewSessionService(credentials, a.sessions, signer, cfg.Session.TTL)
	resets := service.NewResetService(a.backend, hasher, cfg.Auth.ResetTokenTTL)
	tasks := service.NewTaskService(a.backend)

	web, err := handlers.NewWebHandler(credentials, sessionService, resets, tasks, handlers.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.SecureCookie,
	})
	if err != nil {
		return err
	}
	api := handlers.NewAPIHandler(tasks)

	gates := router.Gates{
		Web: middleware.RequireWebSession(sessionService, cfg.Session.CookieName, "/login"),
		API: middleware.RequireAPISession(sessionService, cfg.Session.CookieName),
	}

	mux, err := router.New(routes(web, api, cfg.Auth.LoginRateLimit), gates,
		middleware.Recovery,
		middleware.RequestID,
		middleware.Logging,
		middleware.RateLimit(cfg.HTTP.RateLimit),
		apiCORS(cfg.HTTP.CORSOrigins),
	)
	if err != nil {
		return fmt.Errorf("маршруты: %w", err)
	}

	a.handler = otelhttp.NewHandler(mux, "scheduler")
	a.server = &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return nil
}

// apiCORS применяет CORS только к /api; HTML-формы остаются same-origin.
func apiCORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	withCORS := cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return func(next http.Handler) http.Handler {
		api := withCORS(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				api.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handler возвращает собранную цепочку обработчиков; нужен тестам.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run запускает сервер и фоновую очистку, блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		a.sweeper.Start(workerCtx)
	}()
	a.shutdowns = append(a.shutdowns, func() {
		stopWorker()
		<-workerDone
	})
	defer a.Shutdown()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			logger.Error("Сервер остановился с ошибкой", err)
			return fmt.Errorf("сервер: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Получен сигнал остановки, завершаем запросы...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка graceful shutdown", err)
		return fmt.Errorf("остановка сервера: %w", err)
	}
	logger.Info("Сервер остановлен")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.config.Server.ShutdownTimeout > 0 {
		return a.config.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// Shutdown освобождает ресурсы в порядке, обратном созданию. Повторный вызов ничего не делает.
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
