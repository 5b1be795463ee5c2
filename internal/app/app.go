package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yarukoto/yarukoto/internal/config"
	"github.com/yarukoto/yarukoto/internal/db"
	"github.com/yarukoto/yarukoto/internal/editbuffer"
	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/realtime"
	"github.com/yarukoto/yarukoto/internal/repository"
	"github.com/yarukoto/yarukoto/internal/service"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Hub            *realtime.Hub
	StepBuffers    *editbuffer.Registry[model.Steps]
	MemoBuffers    *editbuffer.Registry[string]
	AuthService    *service.AuthService
	UserService    *service.UserService
	GoalService    *service.GoalService
	YearService    *service.YearService
	SuggestService *service.SuggestService
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	yearRepository := repository.NewYearRepository(database)

	// Realtime fan-out and the debounced write-behind registries
	hub := realtime.NewHub()
	stepBuffers := editbuffer.NewRegistry[model.Steps](cfg.EditFlushDelay)
	memoBuffers := editbuffer.NewRegistry[string](cfg.EditFlushDelay)

	// Services
	suggestService := service.NewSuggestService(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry, cfg.IsProduction())
	userService := service.NewUserService(userRepository)
	goalService := service.NewGoalService(goalRepository, yearRepository, suggestService, hub, stepBuffers)
	yearService := service.NewYearService(yearRepository, goalRepository, hub, memoBuffers)

	return &App{
		Cfg:            cfg,
		DB:             database,
		Hub:            hub,
		StepBuffers:    stepBuffers,
		MemoBuffers:    memoBuffers,
		AuthService:    authService,
		UserService:    userService,
		GoalService:    goalService,
		YearService:    yearService,
		SuggestService: suggestService,
	}, nil
}

// Close flushes every pending debounced edit before releasing the database,
// so a shutdown never drops the last debounce window of edits.
func (a *App) Close() error {
	var firstErr error

	err := a.StepBuffers.CloseAll()
	if err != nil {
		firstErr = err
	}
	err = a.MemoBuffers.CloseAll()
	if err != nil && firstErr == nil {
		firstErr = err
	}

	if a.DB != nil {
		err = a.DB.Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
