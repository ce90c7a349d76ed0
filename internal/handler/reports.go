package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kopisenja-pos/api/internal/database"
)

const (
	reportDateLayout    = "2006-01-02"
	defaultPopularLimit = 10
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries.
type ReportStore interface {
	GetSalesSummary(ctx context.Context, arg database.GetSalesSummaryParams) (database.GetSalesSummaryRow, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetPopularItems(ctx context.Context, arg database.GetPopularItemsParams) ([]database.GetPopularItemsRow, error)
	GetHourlySales(ctx context.Context, arg database.GetHourlySalesParams) ([]database.GetHourlySalesRow, error)
	GetPaymentMethodBreakdown(ctx context.Context, arg database.GetPaymentMethodBreakdownParams) ([]database.GetPaymentMethodBreakdownRow, error)
}

// ReportsHandler handles sales reporting endpoints. Reports only count
// settled (PAID) orders.
type ReportsHandler struct {
	store ReportStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/summary", h.Summary)
	r.Get("/reports/daily", h.Daily)
	r.Get("/reports/popular-items", h.PopularItems)
	r.Get("/reports/hourly", h.Hourly)
	r.Get("/reports/payment-methods", h.PaymentMethods)
	r.Get("/reports/daily/export", h.ExportDailyCSV)
}

// --- Response types ---

type salesSummaryResponse struct {
	From           string `json:"from"`
	To             string `json:"to"`
	TotalOrders    int64  `json:"total_orders"`
	TotalRevenue   string `json:"total_revenue"`
	TotalItemsSold int64  `json:"total_items_sold"`
	AvgOrderValue  string `json:"avg_order_value"`
}

type dailySalesResponse struct {
	Date         string `json:"date"`
	TotalOrders  int64  `json:"total_orders"`
	TotalRevenue string `json:"total_revenue"`
}

type popularItemResponse struct {
	ItemName     string `json:"item_name"`
	TotalSold    int64  `json:"total_sold"`
	TotalRevenue string `json:"total_revenue"`
}

type hourlySalesResponse struct {
	Hour         int32  `json:"hour"`
	TotalOrders  int64  `json:"total_orders"`
	TotalRevenue string `json:"total_revenue"`
}

type paymentMethodResponse struct {
	PaymentMethod string `json:"payment_method"`
	TotalPayments int64  `json:"total_payments"`
	TotalAmount   string `json:"total_amount"`
}

// --- Handlers ---

// Summary returns aggregate sales for the date range.
// Endpoint: GET /reports/summary?from=2026-08-01&to=2026-08-28
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	row, err := h.store.GetSalesSummary(r.Context(), database.GetSalesSummaryParams{From: from, To: to})
	if err != nil {
		log.Printf("ERROR: failed to get sales summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, salesSummaryResponse{
		From:           from.Format(reportDateLayout),
		To:             to.AddDate(0, 0, -1).Format(reportDateLayout),
		TotalOrders:    row.TotalOrders,
		TotalRevenue:   numericToString(row.TotalRevenue),
		TotalItemsSold: row.TotalItemsSold,
		AvgOrderValue:  numericToString(row.AvgOrderValue),
	})
}

// Daily returns per-day totals for the date range.
// Endpoint: GET /reports/daily
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{From: from, To: to})
	if err != nil {
		log.Printf("ERROR: failed to get daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, dailySalesResponse{
			Date:         row.Day.Format(reportDateLayout),
			TotalOrders:  row.TotalOrders,
			TotalRevenue: numericToString(row.TotalRevenue),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PopularItems returns the best sellers for the date range.
// Endpoint: GET /reports/popular-items?limit=10
func (h *ReportsHandler) PopularItems(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := int32(defaultPopularLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
			return
		}
		limit = int32(n)
	}

	rows, err := h.store.GetPopularItems(r.Context(), database.GetPopularItemsParams{From: from, To: to, Limit: limit})
	if err != nil {
		log.Printf("ERROR: failed to get popular items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]popularItemResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, popularItemResponse{
			ItemName:     row.ItemName,
			TotalSold:    row.TotalSold,
			TotalRevenue: numericToString(row.TotalRevenue),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Hourly returns per-hour totals for the date range, for staffing decisions.
// Endpoint: GET /reports/hourly
func (h *ReportsHandler) Hourly(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetHourlySales(r.Context(), database.GetHourlySalesParams{From: from, To: to})
	if err != nil {
		log.Printf("ERROR: failed to get hourly sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Quiet hours still show up as zero rows so charts cover the full day.
	resp := make([]hourlySalesResponse, 24)
	for hour := range resp {
		resp[hour] = hourlySalesResponse{Hour: int32(hour), TotalRevenue: "0.00"}
	}
	for _, row := range rows {
		if row.Hour < 0 || row.Hour > 23 {
			continue
		}
		resp[row.Hour] = hourlySalesResponse{
			Hour:         row.Hour,
			TotalOrders:  row.TotalOrders,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PaymentMethods returns the settled ledger grouped by method.
// Endpoint: GET /reports/payment-methods
func (h *ReportsHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetPaymentMethodBreakdown(r.Context(), database.GetPaymentMethodBreakdownParams{From: from, To: to})
	if err != nil {
		log.Printf("ERROR: failed to get payment method breakdown: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentMethodResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, paymentMethodResponse{
			PaymentMethod: row.PaymentMethod,
			TotalPayments: row.TotalPayments,
			TotalAmount:   numericToString(row.TotalAmount),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportDailyCSV streams per-day totals as a CSV download.
// Endpoint: GET /reports/daily/export
func (h *ReportsHandler) ExportDailyCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{From: from, To: to})
	if err != nil {
		log.Printf("ERROR: failed to get daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	filename := fmt.Sprintf("daily-sales-%s-%s.csv",
		from.Format(reportDateLayout), to.AddDate(0, 0, -1).Format(reportDateLayout))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "total_orders", "total_revenue"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.Day.Format(reportDateLayout),
			strconv.FormatInt(row.TotalOrders, 10),
			numericToString(row.TotalRevenue),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("ERROR: failed to write CSV: %v", err)
	}
}

// parseDateRange reads from/to query params (inclusive dates) and returns a
// half-open [from, to+1d) interval. Both default to today. The range param
// offers today/week/month presets and wins over from/to when present; week
// starts on Monday, month on the 1st, and both run through today.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	today := time.Now().Truncate(24 * time.Hour)

	if preset := r.URL.Query().Get("range"); preset != "" {
		switch preset {
		case "today":
			return today, today.AddDate(0, 0, 1), nil
		case "week":
			sinceMonday := (int(today.Weekday()) + 6) % 7
			return today.AddDate(0, 0, -sinceMonday), today.AddDate(0, 0, 1), nil
		case "month":
			return today.AddDate(0, 0, 1-today.Day()), today.AddDate(0, 0, 1), nil
		default:
			return time.Time{}, time.Time{}, fmt.Errorf("invalid range, expected today, week or month")
		}
	}

	from := today
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}

	to := from
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date, expected YYYY-MM-DD")
		}
		to = parsed
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to must not be before from")
	}
	return from, to.AddDate(0, 0, 1), nil
}
