package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"weekPlanner/internal/auth"
	"weekPlanner/internal/config"
	"weekPlanner/internal/handlers"
	"weekPlanner/internal/logger"
	"weekPlanner/internal/middleware"
	"weekPlanner/internal/repository/task/inmemory"
	"weekPlanner/internal/repository/task/postgres"
	"weekPlanner/internal/service"
	"weekPlanner/internal/storage"
	"weekPlanner/internal/worker"
)

type App struct {
	config    *config.Config
	server    *http.Server
	janitor   *worker.Janitor
	shutdowns []func() // функции graceful shutdown в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	repo, err := a.buildRepository(ctx)
	if err != nil {
		return err
	}

	files, err := storage.NewLocalStore(a.config.Uploads.Dir, a.config.Uploads.CopyTimeout)
	if err != nil {
		return fmt.Errorf("инициализация файлового хранилища: %w", err)
	}

	taskService := service.NewTaskService(repo, files)
	taskHandler := handlers.NewTaskHandler(taskService, files)

	sessions := auth.NewMemorySessionStore(a.config.Auth.SessionTTL)
	throttle := auth.NewMemoryThrottle(a.config.Auth.ThrottleWindow, a.config.Auth.ThrottleMax)
	a.janitor = worker.NewJanitor(sessions, throttle, a.config.Auth.JanitorInterval)

	router := a.buildRouter(taskHandler, sessions, throttle)
	a.server = &http.Server{
		Addr:    a.config.ServerAddr(),
		Handler: router,
	}

	return nil
}

func (a *App) buildRepository(ctx context.Context) (service.TaskRepository, error) {
	switch a.config.Repository.Type {
	case "postgres":
		pg, err := postgres.New(ctx, a.config.Database.URL, postgres.Options{
			MaxConns:    a.config.Database.MaxConnections,
			MinConns:    a.config.Database.MinConnections,
			IdleTimeout: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("подключение к postgres: %w", err)
		}
		if err := pg.Migrate(); err != nil {
			return nil, err
		}
		a.shutdowns = append(a.shutdowns, pg.Close)
		return pg, nil
	case "inmemory":
		return inmemory.NewTaskStorage(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип репозитория: %q", a.config.Repository.Type)
	}
}

func (a *App) buildRouter(taskHandler *handlers.TaskHandler, sessions auth.SessionStore, throttle auth.Throttle) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimitRPM))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Get("/health", taskHandler.HealthCheck)

	r.Route("/tasks", func(r chi.Router) {
		r.Use(auth.Middleware(sessions, throttle))

		r.Get("/", taskHandler.GetTasks)          // GET /tasks
		r.Post("/", taskHandler.PostTask)         // POST /tasks
		r.Get("/search", taskHandler.SearchTasks) // GET /tasks/search?query=
		r.Patch("/order", taskHandler.UpdateTasksOrder)
		r.Post("/move", taskHandler.MoveTask)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTaskByID)
			r.Patch("/", taskHandler.UpdateTaskByID)
			r.Delete("/", taskHandler.DeleteTaskByID)

			r.Patch("/date", taskHandler.UpdateTaskDate)
			r.Post("/duplicate", taskHandler.DuplicateTask)

			r.Post("/subtasks", taskHandler.PostSubtask)
			r.Patch("/subtasks/{subtaskId}", taskHandler.UpdateSubtask)
			r.Delete("/subtasks/{subtaskId}", taskHandler.DeleteSubtask)

			r.Post("/images", taskHandler.UploadImage)
			r.Get("/images", taskHandler.GetImages)
			r.Delete("/images/{imageId}", taskHandler.DeleteImage)
		})
	})

	return r
}

func (a *App) Run(ctx context.Context) error {
	go a.janitor.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started")
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("работа сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}
