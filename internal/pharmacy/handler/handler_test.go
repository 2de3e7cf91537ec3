package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/hospital-backend/internal/pharmacy/handler"
	"github.com/medflow/hospital-backend/internal/pharmacy/repository"
	"github.com/medflow/hospital-backend/internal/pharmacy/service"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/testutil"
)

type memJournal struct {
	mu      sync.Mutex
	records []*repository.PurchaseRecord
}

func (j *memJournal) Append(_ context.Context, rec *repository.PurchaseRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *memJournal) ListByPatient(_ context.Context, patient string) ([]*repository.PurchaseRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*repository.PurchaseRecord
	for _, rec := range j.records {
		if rec.Patient == patient {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestRouter(today string) http.Handler {
	return newJournaledRouter(today, nil)
}

func newJournaledRouter(today string, journal service.PurchaseJournal) http.Handler {
	svc := service.NewPharmacyService(clock.NewFixedDate(today), false, journal, nil, nil, logger.Nop())
	r := chi.NewRouter()
	r.Mount("/api/pharmacy", handler.Routes(svc, logger.Nop()))
	return r
}

func addMedicine(t *testing.T, h http.Handler, name, serial, expiry string, price float64) {
	t.Helper()
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/pharmacy/medicines", map[string]interface{}{
		"name": name, "serial": serial, "expiry": expiry, "price": price,
	})
	rr := testutil.ExecuteRequest(h, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
}

func bill(h http.Handler, patient, medicine string) *httptest.ResponseRecorder {
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/pharmacy/billing", map[string]string{
		"patient_name": patient, "medicine_name": medicine,
	})
	return testutil.ExecuteRequest(h, req)
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	return testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, path, nil))
}

func TestMedicineHandler_Add(t *testing.T) {
	h := newTestRouter("2025-03-01")

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/pharmacy/medicines", map[string]interface{}{
		"name": "Paracetamol", "serial": "S1", "expiry": "2025-06-01", "price": 2.5,
	})
	rr := testutil.ExecuteRequest(h, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var body struct {
		Message  string `json:"message"`
		Medicine struct {
			Name         string  `json:"name"`
			Serial       string  `json:"serial"`
			Expiry       string  `json:"expiry"`
			Price        float64 `json:"price"`
			CurrentStock int     `json:"current_stock"`
		} `json:"medicine"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "Added Paracetamol (Serial S1, Expiry 2025-06-01, Price 2.50)", body.Message)
	assert.Equal(t, "S1", body.Medicine.Serial)
	assert.Equal(t, "2025-06-01", body.Medicine.Expiry)
	assert.Equal(t, 2.5, body.Medicine.Price)
	assert.Equal(t, 1, body.Medicine.CurrentStock)
	assert.Contains(t, rr.Body.String(), `"price":2.50`)
}

func TestMedicineHandler_Add_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing price",
			body:       map[string]interface{}{"name": "Paracetamol", "serial": "S1", "expiry": "2025-06-01"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "bad expiry",
			body:       map[string]interface{}{"name": "Paracetamol", "serial": "S1", "expiry": "01/06/2025", "price": 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "negative price",
			body:       map[string]interface{}{"name": "Paracetamol", "serial": "S1", "expiry": "2025-06-01", "price": -1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown field",
			body:       map[string]interface{}{"name": "Paracetamol", "serial": "S1", "expiry": "2025-06-01", "price": 1, "qty": 3},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter("2025-03-01")
			rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodPost, "/api/pharmacy/medicines", tt.body))
			testutil.AssertStatus(t, rr, tt.wantStatus)

			var body httputil.ErrorBody
			testutil.ParseJSONBody(t, rr, &body)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestMedicineHandler_Add_DuplicateSerial(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-06-01", 2.5)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/pharmacy/medicines", map[string]interface{}{
		"name": "Paracetamol", "serial": "S1", "expiry": "2025-07-01", "price": 3,
	})
	rr := testutil.ExecuteRequest(h, req)
	testutil.AssertStatus(t, rr, http.StatusConflict)
}

func TestMedicineHandler_ListAndGet(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-06-01", 2.5)
	addMedicine(t, h, "Ibuprofen", "I1", "2025-05-01", 4)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/pharmacy/medicines", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var list []handler.MedicineView
	testutil.ParseJSONBody(t, rr, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "Paracetamol", list[0].Name)
	assert.Equal(t, "Ibuprofen", list[1].Name)
	assert.Equal(t, "2025-06-01", list[0].Serials["S1"].Expiry)
	assert.Equal(t, "2.50", decimal.Decimal(list[0].Serials["S1"].Price).StringFixed(2))
	assert.True(t, testutil.Money("4").Equal(decimal.Decimal(list[1].Serials["I1"].Price)))
	assert.Contains(t, rr.Body.String(), `"price":2.50`)

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/pharmacy/medicines/Ibuprofen", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var got struct {
		Medicine struct {
			Name  string `json:"name"`
			Stock int    `json:"stock"`
			Sold  int    `json:"sold"`
		} `json:"medicine"`
	}
	testutil.ParseJSONBody(t, rr, &got)
	assert.Equal(t, "Ibuprofen", got.Medicine.Name)
	assert.Equal(t, 1, got.Medicine.Stock)

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodGet, "/api/pharmacy/medicines/Aspirin", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestMedicineHandler_EscapedSlashInName(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Co/Amoxiclav", "C1", "2025-06-01", 5)
	addMedicine(t, h, "Co/Amoxiclav", "C2", "2025-07-01", 5)

	rr := get(h, "/api/pharmacy/medicines/Co%2FAmoxiclav")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `"name":"Co/Amoxiclav"`)

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/pharmacy/medicines/Co%2FAmoxiclav/C1", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "Removed serial C1 of Co/Amoxiclav")

	rr = bill(h, "Asha", "Co/Amoxiclav")
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = get(h, "/api/pharmacy/patients/Asha")
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = get(h, "/api/pharmacy/medicines/Vitamin%20C")
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestMedicineHandler_Remove(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-06-01", 2.5)
	addMedicine(t, h, "Paracetamol", "S2", "2025-07-01", 2.5)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/pharmacy/medicines/Paracetamol/S1", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Message      string `json:"message"`
		CurrentStock int    `json:"current_stock"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "Removed serial S1 of Paracetamol", body.Message)
	assert.Equal(t, 1, body.CurrentStock)

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/pharmacy/medicines/Paracetamol/S1", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestBillingHandler_Bill(t *testing.T) {
	h := newTestRouter("2024-06-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-01-01", 2.5)
	addMedicine(t, h, "Paracetamol", "S2", "2025-02-01", 3)

	rr := bill(h, "Asha", "Paracetamol")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Message        string  `json:"message"`
		Patient        string  `json:"patient"`
		Medicine       string  `json:"medicine"`
		SerialSold     string  `json:"serial_sold"`
		PricePaid      float64 `json:"price_paid"`
		TotalPrice     float64 `json:"total_price"`
		RemainingStock int     `json:"remaining_stock"`
		ExpiredRemoved int     `json:"expired_removed"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "Billed Asha for Paracetamol", body.Message)
	assert.Equal(t, "S1", body.SerialSold)
	assert.Equal(t, 2.5, body.PricePaid)
	assert.Equal(t, 2.5, body.TotalPrice)
	assert.Equal(t, 1, body.RemainingStock)
	assert.Equal(t, 0, body.ExpiredRemoved)

	rr = bill(h, "Asha", "Paracetamol")
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "S2", body.SerialSold)
	assert.Equal(t, 5.5, body.TotalPrice)
	assert.Contains(t, rr.Body.String(), `"total_price":5.50`)
}

func TestBillingHandler_Bill_PurgesExpired(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Paracetamol", "OLD", "2025-01-01", 1)
	addMedicine(t, h, "Paracetamol", "NEW", "2025-06-01", 2)

	rr := bill(h, "Asha", "Paracetamol")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		SerialSold     string `json:"serial_sold"`
		RemainingStock int    `json:"remaining_stock"`
		ExpiredRemoved int    `json:"expired_removed"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "NEW", body.SerialSold)
	assert.Equal(t, 0, body.RemainingStock)
	assert.Equal(t, 1, body.ExpiredRemoved)
}

func TestBillingHandler_Bill_Errors(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-01-01", 1)

	tests := []struct {
		name       string
		patient    string
		medicine   string
		wantStatus int
		wantCode   string
	}{
		{"unknown medicine", "Asha", "Aspirin", http.StatusNotFound, "NOT_FOUND"},
		{"only expired units", "Asha", "Paracetamol", http.StatusBadRequest, "OUT_OF_STOCK"},
		{"missing patient", "", "Paracetamol", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := bill(h, tt.patient, tt.medicine)
			testutil.AssertStatus(t, rr, tt.wantStatus)

			var body httputil.ErrorBody
			testutil.ParseJSONBody(t, rr, &body)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}

	rr := get(h, "/api/pharmacy/patients")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"patients":[]}`, rr.Body.String())
}

func TestBillingHandler_Patients(t *testing.T) {
	h := newTestRouter("2024-06-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-01-01", 2.5)
	addMedicine(t, h, "Ibuprofen", "I1", "2025-01-01", 4)
	testutil.AssertStatus(t, bill(h, "Asha", "Paracetamol"), http.StatusOK)
	testutil.AssertStatus(t, bill(h, "Asha", "Ibuprofen"), http.StatusOK)

	rr := get(h, "/api/pharmacy/patients")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var list struct {
		Patients []struct {
			Name           string  `json:"name"`
			TotalPrice     float64 `json:"total_price"`
			TotalPurchases int     `json:"total_purchases"`
			Purchases      []struct {
				Medicine string  `json:"medicine"`
				Serial   string  `json:"serial"`
				Price    float64 `json:"price"`
				Date     string  `json:"date"`
			} `json:"purchases"`
			Frequency map[string]int `json:"frequency"`
		} `json:"patients"`
	}
	testutil.ParseJSONBody(t, rr, &list)
	require.Len(t, list.Patients, 1)
	p := list.Patients[0]
	assert.Equal(t, "Asha", p.Name)
	assert.Equal(t, 6.5, p.TotalPrice)
	assert.Equal(t, 2, p.TotalPurchases)
	require.Len(t, p.Purchases, 2)
	assert.Equal(t, "Paracetamol", p.Purchases[0].Medicine)
	assert.Equal(t, "S1", p.Purchases[0].Serial)
	assert.Equal(t, "2024-06-01 12:00:00", p.Purchases[0].Date)
	assert.Equal(t, map[string]int{"Paracetamol": 1, "Ibuprofen": 1}, p.Frequency)

	rr = get(h, "/api/pharmacy/patients/Asha")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `"patient":{"name":"Asha"`)

	rr = get(h, "/api/pharmacy/patients/Ravi")
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestBillingHandler_Journal(t *testing.T) {
	journal := &memJournal{}
	h := newJournaledRouter("2024-06-01", journal)
	addMedicine(t, h, "Paracetamol", "S1", "2025-01-01", 2.5)
	addMedicine(t, h, "Paracetamol", "S2", "2025-02-01", 3)

	testutil.AssertStatus(t, bill(h, "Asha", "Paracetamol"), http.StatusOK)
	testutil.AssertStatus(t, bill(h, "Ravi", "Paracetamol"), http.StatusOK)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/pharmacy/clear-billing", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = get(h, "/api/pharmacy/patients/Asha/journal")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Patient   string                     `json:"patient"`
		Purchases []handler.JournalEntryView `json:"purchases"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "Asha", body.Patient)
	require.Len(t, body.Purchases, 1)
	assert.Equal(t, "S1", body.Purchases[0].Serial)
	assert.Equal(t, "2024-06-01 12:00:00", body.Purchases[0].Date)
	assert.Equal(t, "2.50", decimal.Decimal(body.Purchases[0].Price).StringFixed(2))

	rr = get(h, "/api/pharmacy/patients/Nobody/journal")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `"purchases":[]`)
}

func TestBillingHandler_Journal_Disabled(t *testing.T) {
	h := newTestRouter("2024-06-01")

	rr := get(h, "/api/pharmacy/patients/Asha/journal")
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

	var body httputil.ErrorBody
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body.Code)
}

func TestAnalyticsHandler_NoData(t *testing.T) {
	h := newTestRouter("2025-03-01")

	for _, path := range []string{
		"/api/pharmacy/analytics/most-demanded",
		"/api/pharmacy/analytics/lowest-stock",
		"/api/pharmacy/analytics/nearest-expiry",
	} {
		t.Run(path, func(t *testing.T) {
			rr := get(h, path)
			testutil.AssertStatus(t, rr, http.StatusNotFound)

			var body httputil.ErrorBody
			testutil.ParseJSONBody(t, rr, &body)
			assert.Equal(t, "NO_DATA", body.Code)
		})
	}
}

func TestAnalyticsHandler_Leaders(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-06-01", 2.5)
	addMedicine(t, h, "Paracetamol", "S2", "2025-07-01", 2.5)
	addMedicine(t, h, "Ibuprofen", "I1", "2025-03-11", 4)
	addMedicine(t, h, "Ibuprofen", "I2", "2025-08-01", 4)
	addMedicine(t, h, "Ibuprofen", "I3", "2025-09-01", 4)
	testutil.AssertStatus(t, bill(h, "Asha", "Ibuprofen"), http.StatusOK)
	testutil.AssertStatus(t, bill(h, "Ravi", "Ibuprofen"), http.StatusOK)

	rr := get(h, "/api/pharmacy/analytics/most-demanded")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"medicine":{"name":"Ibuprofen","frequency":2},"message":"Most demanded: Ibuprofen (Demanded 2 times)"}`, rr.Body.String())

	rr = get(h, "/api/pharmacy/analytics/lowest-stock")
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"medicine":{"name":"Ibuprofen","stock":1},"message":"Lowest stock: Ibuprofen (Stock: 1)"}`, rr.Body.String())

	rr = get(h, "/api/pharmacy/analytics/nearest-expiry")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Medicine struct {
			Name            string  `json:"name"`
			Serial          string  `json:"serial"`
			Expiry          string  `json:"expiry"`
			Price           float64 `json:"price"`
			DaysUntilExpiry int     `json:"days_until_expiry"`
		} `json:"medicine"`
		Message string `json:"message"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "Paracetamol", body.Medicine.Name)
	assert.Equal(t, "S1", body.Medicine.Serial)
	assert.Equal(t, 92, body.Medicine.DaysUntilExpiry)
	assert.Equal(t, "Nearest Expiry: Paracetamol (Serial S1), Expires on 2025-06-01", body.Message)
}

func TestClearEndpoints(t *testing.T) {
	h := newTestRouter("2025-03-01")
	addMedicine(t, h, "Paracetamol", "S1", "2025-06-01", 2.5)
	addMedicine(t, h, "Paracetamol", "S2", "2025-07-01", 2.5)
	testutil.AssertStatus(t, bill(h, "Asha", "Paracetamol"), http.StatusOK)

	rr := testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/pharmacy/clear-inventory", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"message":"Inventory cleared successfully"}`, rr.Body.String())

	rr = get(h, "/api/pharmacy/medicines")
	assert.JSONEq(t, `[]`, rr.Body.String())
	testutil.AssertStatus(t, get(h, "/api/pharmacy/analytics/most-demanded"), http.StatusNotFound)

	// the ledger survives an inventory reset
	testutil.AssertStatus(t, get(h, "/api/pharmacy/patients/Asha"), http.StatusOK)

	rr = testutil.ExecuteRequest(h, testutil.NewHTTPRequest(http.MethodDelete, "/api/pharmacy/clear-billing", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"message":"Billing records cleared successfully"}`, rr.Body.String())
	testutil.AssertStatus(t, get(h, "/api/pharmacy/patients/Asha"), http.StatusNotFound)
}
