package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cleanup/dashboard/internal/database"
	"github.com/cleanup/dashboard/internal/enum"
	"github.com/cleanup/dashboard/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// JournalStore defines the database methods needed by journal handlers.
// Satisfied by *database.Queries.
type JournalStore interface {
	ListJournalByOrder(ctx context.Context, arg database.ListJournalByOrderParams) ([]database.JournalEntry, error)
	SummarizeJournal(ctx context.Context, arg database.SummarizeJournalParams) ([]database.SummarizeJournalRow, error)
}

// JournalHandler serves the dashboard's action journal to managers and admins.
type JournalHandler struct {
	store JournalStore
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(store JournalStore) *JournalHandler {
	return &JournalHandler{store: store}
}

// RegisterOrderRoutes registers per-order journal routes. Mounted at /stores/{store}/orders.
func (h *JournalHandler) RegisterOrderRoutes(r chi.Router) {
	r.With(middleware.RequireRole(enum.RoleAdmin, enum.RoleManager)).Get("/{code}/journal", h.OrderJournal)
}

// RegisterRoutes registers report routes. Mounted at /stores/{store}/reports.
func (h *JournalHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequireRole(enum.RoleAdmin, enum.RoleManager))
	r.Get("/actions", h.ActionSummary)
}

type journalEntryResponse struct {
	ID          string    `json:"id"`
	OrderCode   string    `json:"order_code"`
	Action      string    `json:"action"`
	PerformerID string    `json:"performer_id"`
	Role        string    `json:"role"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

type actionSummaryResponse struct {
	StartDate string                         `json:"start_date"`
	EndDate   string                         `json:"end_date"`
	Rows      []database.SummarizeJournalRow `json:"rows"`
}

// OrderJournal handles GET /stores/{store}/orders/{code}/journal.
func (h *JournalHandler) OrderJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListJournalByOrder(r.Context(), database.ListJournalByOrderParams{
		StoreID:   chi.URLParam(r, "store"),
		OrderCode: chi.URLParam(r, "code"),
	})
	if err != nil {
		log.Printf("ERROR: list journal: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	resp := make([]journalEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = journalEntryResponse{
			ID:          e.ID.String(),
			OrderCode:   e.OrderCode,
			Action:      e.Action,
			PerformerID: e.PerformerID.String(),
			Role:        e.Role,
			Outcome:     e.Outcome,
			Message:     e.Message,
			CreatedAt:   e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ActionSummary handles GET /stores/{store}/reports/actions.
// Counts journaled actions by outcome over [start_date, end_date].
func (h *JournalHandler) ActionSummary(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	rows, err := h.store.SummarizeJournal(r.Context(), database.SummarizeJournalParams{
		StoreID: chi.URLParam(r, "store"),
		From:    startDate,
		To:      endDate,
	})
	if err != nil {
		log.Printf("ERROR: summarize journal: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, actionSummaryResponse{
		StartDate: startDate.Format("2006-01-02"),
		EndDate:   endDate.AddDate(0, 0, -1).Format("2006-01-02"),
		Rows:      rows,
	})
}

// parseDateRange extracts start_date and end_date query params (YYYY-MM-DD)
// in store-local time. Defaults to the last 30 days. The returned end is
// exclusive (midnight after end_date).
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	startDate := today.AddDate(0, 0, -30)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		startDate = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	return startDate, endDate, nil
}
