package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/hospital-backend/internal/pharmacy/service"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// Routes builds the pharmacy API router, mounted by the service under /api/pharmacy
func Routes(svc *service.PharmacyService, log *logger.Logger) chi.Router {
	medicineHandler := NewMedicineHandler(svc, log)
	billingHandler := NewBillingHandler(svc, log)
	analyticsHandler := NewAnalyticsHandler(svc, log)

	r := chi.NewRouter()

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", medicineHandler.List)
		r.Post("/", medicineHandler.Add)
		r.Get("/{name}", medicineHandler.Get)
		r.Delete("/{name}/{serial}", medicineHandler.Remove)
	})

	r.Post("/billing", billingHandler.Bill)

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", billingHandler.ListPatients)
		r.Get("/{name}", billingHandler.GetPatient)
		r.Get("/{name}/journal", billingHandler.Journal)
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/most-demanded", analyticsHandler.MostDemanded)
		r.Get("/lowest-stock", analyticsHandler.LowestStock)
		r.Get("/nearest-expiry", analyticsHandler.NearestExpiry)
	})

	r.Delete("/clear-inventory", medicineHandler.ClearInventory)
	r.Delete("/clear-billing", billingHandler.ClearBilling)

	return r
}

// urlParam returns a path parameter with percent-escapes decoded. chi matches
// against RawPath when the request path holds an escaped slash, and then the
// captured value is still escaped.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
