package handler

import (
	"fmt"
	"net/http"

	"github.com/medflow/hospital-backend/internal/pharmacy/service"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// AnalyticsHandler serves the top-of-heap queries
type AnalyticsHandler struct {
	service *service.PharmacyService
	logger  *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc *service.PharmacyService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: svc,
		logger:  log,
	}
}

// DemandView is the best-selling medicine
type DemandView struct {
	Name      string `json:"name"`
	Frequency int    `json:"frequency"`
}

// StockView is the medicine with the fewest units on hand
type StockView struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// ExpiryView is the live unit closest to expiry
type ExpiryView struct {
	Name            string `json:"name"`
	Serial          string `json:"serial"`
	Expiry          string `json:"expiry"`
	Price           Money  `json:"price"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}

// MostDemanded returns the medicine with the most units sold
func (h *AnalyticsHandler) MostDemanded(w http.ResponseWriter, r *http.Request) {
	leader, err := h.service.MostDemanded()
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"medicine": DemandView{Name: leader.Name, Frequency: leader.Sold},
		"message":  fmt.Sprintf("Most demanded: %s (Demanded %d times)", leader.Name, leader.Sold),
	})
}

// LowestStock returns the medicine with the fewest units on hand
func (h *AnalyticsHandler) LowestStock(w http.ResponseWriter, r *http.Request) {
	leader, err := h.service.LowestStock()
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"medicine": StockView{Name: leader.Name, Stock: leader.Stock},
		"message":  fmt.Sprintf("Lowest stock: %s (Stock: %d)", leader.Name, leader.Stock),
	})
}

// NearestExpiry returns the unexpired unit that expires first
func (h *AnalyticsHandler) NearestExpiry(w http.ResponseWriter, r *http.Request) {
	leader, err := h.service.NearestExpiry()
	if err != nil {
		httputil.Error(w, err)
		return
	}

	expiry := clock.FormatDate(leader.Expiry)
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"medicine": ExpiryView{
			Name:            leader.Medicine,
			Serial:          leader.SerialID,
			Expiry:          expiry,
			Price:           Money(leader.Price),
			DaysUntilExpiry: leader.DaysUntilExpiry,
		},
		"message": fmt.Sprintf("Nearest Expiry: %s (Serial %s), Expires on %s", leader.Medicine, leader.SerialID, expiry),
	})
}
