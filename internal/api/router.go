package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api/middleware"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/config"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
)

// Services holds the services the router exposes over HTTP.
type Services struct {
	System       *service.SystemService
	Allocation   *service.AllocationService
	Signing      *service.SigningService
	Distribution *service.DistributionService
	Approval     *service.ApprovalService
	Payout       *service.PayoutService
	Project      *service.ProjectService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	systemHandler := handlers.NewSystemHandler(svc.System)
	shareholdingHandler := handlers.NewShareholdingHandler(svc.Allocation, svc.Signing)
	distributionHandler := handlers.NewDistributionHandler(svc.Distribution, svc.Approval, svc.Payout)
	projectHandler := handlers.NewProjectHandler(svc.Project)
	esignHandler := handlers.NewESignHandler(svc.Signing)

	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/spv/{uuid}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateUUIDMiddleware)
			r.Post("/allocate", shareholdingHandler.Allocate)
			r.Get("/shareholdings", shareholdingHandler.SPVShareholdings)
			r.With(custommiddleware.ValidateUUIDParams("investorId")).
				Post("/shareholdings/{investorId}/complete", shareholdingHandler.Complete)
			r.Get("/distributions", distributionHandler.SPVDistributions)
		})

		r.With(custommiddleware.ValidateUUIDMiddleware).
			Get("/investor/{uuid}/shareholdings", shareholdingHandler.InvestorShareholdings)

		r.Route("/distribution", func(r chi.Router) {
			r.Post("/", distributionHandler.CreateDistribution)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", distributionHandler.GetDistribution)
				r.Put("/", distributionHandler.UpdateDistribution)
				r.Post("/approve/{role}", distributionHandler.Approve)
				r.Post("/cancel", distributionHandler.Cancel)
				r.Post("/fail", distributionHandler.Fail)
				r.Post("/process", distributionHandler.ProcessBatch)
				r.With(custommiddleware.ValidateUUIDParams("investorId")).
					Post("/investors/{investorId}/reset", distributionHandler.ResetPayment)
			})
		})

		r.Route("/project/{uuid}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateUUIDMiddleware)
			r.Get("/", projectHandler.GetProject)
			r.Post("/submit", projectHandler.Submit)
			r.Post("/approve/{role}", projectHandler.Approve)
			r.Post("/reject", projectHandler.Reject)
		})

		r.Post("/esign/callback", esignHandler.Callback)
	})

	return r
}
