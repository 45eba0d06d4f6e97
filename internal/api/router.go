// Package api wires the HTTP surface: chi routing, middleware, and the
// handler-to-service graph.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medidocs/backend/internal/api/handlers"
	"github.com/medidocs/backend/internal/api/middleware"
	"github.com/medidocs/backend/internal/audit"
	"github.com/medidocs/backend/internal/auth"
	"github.com/medidocs/backend/internal/cache"
	"github.com/medidocs/backend/internal/config"
	"github.com/medidocs/backend/internal/evaluation"
	"github.com/medidocs/backend/internal/llm"
	"github.com/medidocs/backend/internal/prompt"
	"github.com/medidocs/backend/internal/queue"
	"github.com/medidocs/backend/internal/summary"
	"github.com/medidocs/backend/internal/usage"
)

type Router struct {
	mux    *chi.Mux
	db     *pgxpool.Pool
	redis  *redis.Client
	cfg    *config.Config
	logger *slog.Logger
	jwt    *auth.JWTMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, logger *slog.Logger) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		db:     db,
		redis:  rdb,
		cfg:    cfg,
		logger: logger,
		jwt:    auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORS.Origins))

	// Redis-backed pieces degrade to nothing when redis is absent.
	var (
		c   *cache.Cache
		enq usage.Enqueuer
	)
	if rt.redis != nil {
		c = cache.NewCache(rt.redis)
		enq = queue.NewClient(rt.cfg.Redis)

		rl := middleware.NewRateLimiter(c, 120, time.Minute)
		r.Use(rl.Limit)
	}

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	auditLog := audit.NewLogger(rt.logger)
	promptSvc := prompt.NewService(prompt.NewPgStore(rt.db), c, rt.logger)
	evalPromptStore := prompt.NewPgEvaluationStore(rt.db)
	registry := llm.NewRegistry(rt.cfg.LLM)
	selector := llm.NewSelector(rt.cfg.LLM, rt.cfg.Pipeline.MaxTokenThreshold, promptSvc)
	usageSvc := usage.NewService(usage.NewPgStore(rt.db), enq, rt.cfg.Pipeline.StatisticsDays, rt.logger)

	summarySvc := summary.NewService(rt.cfg.Pipeline, selector, registry, promptSvc, usageSvc, auditLog)
	evalSvc := evaluation.NewService(rt.cfg.Pipeline, rt.cfg.LLM.EvaluationModel, registry, evalPromptStore, auditLog)

	summaryH := handlers.NewSummaryHandler(summarySvc, rt.cfg.LLM)
	evalH := handlers.NewEvaluationHandler(evalSvc)
	promptH := handlers.NewPromptHandler(promptSvc, auditLog)
	evalPromptH := handlers.NewEvaluationPromptHandler(evalPromptStore, auditLog)
	statsH := handlers.NewStatisticsHandler(usageSvc)
	settingsH := handlers.NewSettingsHandler(promptSvc)

	r.Route("/api/v1", func(r chi.Router) {
		// Read-only endpoints the frontend hits before login.
		r.Get("/summary/models", summaryH.Models)
		r.Get("/prompts", promptH.List)
		r.Get("/prompts/{id}", promptH.Get)
		r.Get("/evaluation/prompts", evalPromptH.List)
		r.Get("/evaluation/prompts/{documentType}", evalPromptH.Get)

		r.Route("/statistics", func(r chi.Router) {
			r.Get("/summary", statsH.Summary)
			r.Get("/aggregated", statsH.Aggregated)
			r.Get("/records", statsH.Records)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/departments", settingsH.Departments)
			r.Get("/doctors/{department}", settingsH.Doctors)
			r.Get("/document-types", settingsH.DocumentTypes)
			r.Get("/selected-model", settingsH.SelectedModel)
		})

		// Generation, evaluation and template mutation require auth.
		r.Group(func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)

			r.Post("/summary/generate", summaryH.Generate)
			r.Post("/summary/generate-stream", summaryH.GenerateStream)
			r.Post("/evaluation/evaluate", evalH.Evaluate)
			r.Post("/evaluation/evaluate-stream", evalH.EvaluateStream)

			r.Post("/prompts", promptH.Create)
			r.Delete("/prompts/{id}", promptH.Delete)
			r.Post("/evaluation/prompts", evalPromptH.Save)
			r.Delete("/evaluation/prompts/{documentType}", evalPromptH.Delete)
		})
	})

	return r
}
