package routes

import (
	"net/http"

	"github.com/yarukoto/yarukoto/internal/app"
	"github.com/yarukoto/yarukoto/internal/handler"
	"github.com/yarukoto/yarukoto/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	suggest := handler.NewSuggestHandler(app.SuggestService)
	todo := handler.NewTodoHandler(app.GoalService)
	year := handler.NewYearHandler(app.YearService, app.GoalService)
	feed := handler.NewFeedHandler(app.Hub, app.GoalService, app.YearService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /auth/register", rateLimiter(middleware.RequireGuest(auth.Register)))
	mux.HandleFunc("POST /auth/login", rateLimiter(middleware.RequireGuest(auth.Login)))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(auth.Me))

	// OAuth
	mux.HandleFunc("GET /auth/google", rateLimiter(middleware.RequireGuest(auth.GoogleAuth)))
	mux.HandleFunc("GET /auth/google/callback", rateLimiter(auth.GoogleCallback))

	// Suggestion proxy
	mux.HandleFunc("POST /api/suggest", suggest.Suggest)

	// ============================================================================
	// PROTECTED ROUTES (/app/*)
	// ============================================================================

	// Flat todo list
	mux.HandleFunc("GET /app/todos", middleware.RequireAuth(todo.List))
	mux.HandleFunc("POST /app/todos", middleware.RequireAuth(todo.Create))
	mux.HandleFunc("GET /app/todos/{id}", middleware.RequireAuth(todo.Get))
	mux.HandleFunc("PATCH /app/todos/{id}", middleware.RequireAuth(todo.Patch))
	mux.HandleFunc("PATCH /app/todos/{id}/steps", middleware.RequireAuth(todo.PatchSteps))
	mux.HandleFunc("POST /app/todos/{id}/suggest", middleware.RequireAuth(todo.Suggest))
	mux.HandleFunc("DELETE /app/todos/{id}", middleware.RequireAuth(todo.Delete))

	// Year pages
	mux.HandleFunc("GET /app/years", middleware.RequireAuth(year.List))
	mux.HandleFunc("PUT /app/years/{year}", middleware.RequireAuth(year.Upsert))
	mux.HandleFunc("PATCH /app/years/{year}/memo", middleware.RequireAuth(year.PatchMemo))
	mux.HandleFunc("GET /app/years/{year}/items", middleware.RequireAuth(year.ListItems))
	mux.HandleFunc("POST /app/years/{year}/items", middleware.RequireAuth(year.CreateItem))
	mux.HandleFunc("PATCH /app/years/{year}/items/{id}", middleware.RequireAuth(todo.Patch))
	mux.HandleFunc("PATCH /app/years/{year}/items/{id}/steps", middleware.RequireAuth(todo.PatchSteps))
	mux.HandleFunc("POST /app/years/{year}/items/{id}/suggest", middleware.RequireAuth(todo.Suggest))
	mux.HandleFunc("POST /app/years/{year}/items/{id}/carry-over", middleware.RequireAuth(year.CarryOver))
	mux.HandleFunc("DELETE /app/years/{year}/items/{id}", middleware.RequireAuth(todo.Delete))
	mux.HandleFunc("GET /app/years/{year}/retrospective", middleware.RequireAuth(year.Retrospective))
	mux.HandleFunc("GET /app/years/{year}/retrospective/export", middleware.RequireAuth(year.ExportRetrospective))

	// Export
	mux.HandleFunc("GET /app/goals/export", middleware.RequireAuth(todo.Export))

	// Change feed
	mux.HandleFunc("GET /app/feed", middleware.RequireAuth(feed.Feed))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Config(app.Cfg),
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService, app.UserService),
	)
}
