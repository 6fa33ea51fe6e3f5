package http

import (
	"context"
	"net/http"
	"time"

	_ "github.com/NouvelleRive/nouvelle-rive-sub001/docs" // Импорт сгенерированных файлов
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// HealthCheck проверяет одну зависимость сервиса.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps — сценарии и инфраструктура, которые обслуживает роутер.
type Deps struct {
	Ingest         usecase.IngestUC
	Sales          usecase.SaleUC
	Import         usecase.ImportUC
	Dedupe         usecase.DedupeUC
	Checkout       usecase.CheckoutUC
	Snapshots      usecase.SnapshotProvider
	Secrets        WebhookSecrets
	Location       *time.Location
	MaxBodyBytes   int64
	Metrics        http.Handler
	Observer       HTTPObserver
	HealthChecks   []HealthCheck
	SwaggerDocPath string
}

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(d Deps) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Recoverer)
	r.router.Use(accessLog(r.logger, d.Observer))

	r.router.Get("/healthz", healthHandler(d.HealthChecks, r.logger))
	if d.Metrics != nil {
		r.router.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	docPath := d.SwaggerDocPath
	if docPath == "" {
		docPath = "/swagger/doc.json"
	}
	r.router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docPath)))

	r.router.Group(func(api chi.Router) {
		api.Use(bodyLimit(d.MaxBodyBytes))
		if d.Snapshots != nil {
			api.Use(snapshotMiddleware(d.Snapshots, r.logger))
		}

		webhooks := NewWebhookHandler(d.Ingest, d.Checkout, d.Secrets, r.logger)
		registerWebhookRoutes(api, webhooks)

		sales := NewSaleHandler(d.Sales, d.Location, r.logger)
		registerSaleRoutes(api, sales)

		recon := NewReconciliationHandler(d.Import, d.Dedupe, r.logger)
		api.Post("/sales-reconciliation/import", recon.importSales)
		api.Post("/reconciliation/dedupe", recon.dedupe)

		checkout := NewCheckoutHandler(d.Checkout, r.logger)
		api.Post("/checkout", checkout.checkout)
	})
}

func registerWebhookRoutes(router chi.Router, h *WebhookHandler) {
	router.Route("/webhooks", func(wh chi.Router) {
		wh.Post("/pos", h.pos)
		wh.Post("/marketplace", h.marketplace)
		wh.Get("/marketplace", h.marketplaceChallenge)
		wh.Post("/storefront", h.storefront)
	})
}

func registerSaleRoutes(router chi.Router, h *SaleHandler) {
	router.Route("/sales", func(s chi.Router) {
		s.Get("/", h.list)
		s.Post("/attribute", h.attribute)
		s.Delete("/{id}", h.delete)
	})
}

// healthHandler
//
//	@Summary	Проверка состояния
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Failure	503	{object}	map[string]interface{}
//	@Router		/healthz [get]
func healthHandler(checks []HealthCheck, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := make(map[string]string)
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				log.Warnf("health check %s failed: %v", c.Name, err)
				failed[c.Name] = err.Error()
			}
		}

		if len(failed) > 0 {
			WriteSuccess(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
			return
		}
		WriteSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
