package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealhunter/dealhunter/internal/advisor"
	"github.com/dealhunter/dealhunter/internal/fault"
	"github.com/dealhunter/dealhunter/internal/report"
	"github.com/dealhunter/dealhunter/internal/search"
	"github.com/dealhunter/dealhunter/internal/storage"
)

const maxBatchScoreDeals = 20

type AppDeps struct {
	Store   *storage.Store
	Search  *search.Pipeline
	Advisor *advisor.Advisor
	Token   string
}

// NewAppHandler builds the HTTP surface. Everything except /health sits
// behind bearer auth.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/search", handleSearch(deps))
		r.Get("/searches", handleListSearches(deps))
		r.Get("/searches/{id}", handleGetSearch(deps))
		r.Get("/searches/{id}/itinerary.pdf", handleSearchItineraryPDF(deps))

		r.Post("/deals", handleCreateDeal(deps))
		r.Get("/deals", handleListDeals(deps))
		r.Get("/deals/{id}", handleGetDeal(deps))
		r.Post("/deals/{id}/score", handleScoreDeal(deps))
		r.Post("/deals/score-batch", handleScoreBatch(deps))

		r.Post("/price-pulse", handlePricePulse(deps))
		r.Post("/itinerary", handleItinerary(deps))
		r.Post("/packing-list", handlePackingList(deps))

		r.Post("/users", handleCreateUser(deps))
		r.Get("/users/{id}/points", handleUserPoints(deps))
	})

	return r
}

// statusForSearchError maps pipeline failures onto HTTP codes. Tagged AI
// failures read as upstream trouble; everything else is the caller's
// request.
func statusForSearchError(err error) int {
	switch fault.TagOf(err) {
	case fault.Hallucination, fault.Timeout:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func handleSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req search.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		res, err := deps.Search.Perform(r.Context(), req)
		if err != nil {
			httpError(w, statusForSearchError(err), "%v", err)
			return
		}
		writeData(w, http.StatusOK, res)
	}
}

func handleListSearches(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		limit := parseIntParam(r, "limit", 20, 100)

		logs, err := deps.Store.ListSearchLogs(userID, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list searches: %v", err)
			return
		}
		if logs == nil {
			logs = []storage.SearchLog{}
		}
		writeData(w, http.StatusOK, logs)
	}
}

func handleGetSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		log, err := deps.Store.GetSearchLog(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "search not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get search: %v", err)
			return
		}

		tasks, err := deps.Store.GetTasksForLog(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get tasks: %v", err)
			return
		}
		if tasks == nil {
			tasks = []storage.AgentTaskRow{}
		}
		writeData(w, http.StatusOK, map[string]any{
			"log":   log,
			"tasks": tasks,
		})
	}
}

func handleSearchItineraryPDF(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		log, err := deps.Store.GetSearchLog(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "search not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get search: %v", err)
			return
		}
		if log.Status != storage.StatusCompleted {
			httpError(w, http.StatusConflict, "search %s is %s; only completed searches have itineraries", id, log.Status)
			return
		}

		tasks, err := deps.Store.GetTasksForLog(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get tasks: %v", err)
			return
		}
		if len(tasks) == 0 {
			httpError(w, http.StatusConflict, "search %s has no tasks to plan around", id)
			return
		}

		destination := tasks[0].Destination
		days := tripDays(tasks[0].StartDate, tasks[0].EndDate)

		it := deps.Advisor.GenerateItinerary(r.Context(), destination, days, "")
		pdf, err := report.ItineraryPDF(it)
		if err != nil {
			httpError(w, http.StatusBadGateway, "itinerary unavailable: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdf)
	}
}

// tripDays counts calendar days in the task window, clamped to something
// a day-by-day plan can reasonably cover.
func tripDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if days > 14 {
		days = 14
	}
	return days
}

type dealRequest struct {
	Title         string  `json:"title"`
	Destination   string  `json:"destination"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price"`
	Vibe          string  `json:"vibe"`
	ExpiresAt     string  `json:"expires_at"` // RFC3339; empty means never
}

func handleCreateDeal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req dealRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Title == "" || req.Destination == "" {
			httpError(w, http.StatusBadRequest, "title and destination are required")
			return
		}
		if req.Price <= 0 {
			httpError(w, http.StatusBadRequest, "price must be positive")
			return
		}

		var expiresAt time.Time
		if req.ExpiresAt != "" {
			t, err := time.Parse(time.RFC3339, req.ExpiresAt)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid expires_at: %v", err)
				return
			}
			expiresAt = t.UTC()
		}

		deal := storage.Deal{
			ID:            uuid.New().String(),
			Title:         req.Title,
			Destination:   req.Destination,
			Category:      req.Category,
			Price:         req.Price,
			OriginalPrice: req.OriginalPrice,
			Vibe:          req.Vibe,
			Active:        true,
			ExpiresAt:     expiresAt,
			CreatedAt:     time.Now().UTC(),
		}
		if err := deps.Store.SaveDeal(deal); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save deal: %v", err)
			return
		}
		writeData(w, http.StatusCreated, deal)
	}
}

func handleListDeals(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("active") != "false"
		limit := parseIntParam(r, "limit", 50, 200)

		deals, err := deps.Store.ListDeals(activeOnly, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list deals: %v", err)
			return
		}
		if deals == nil {
			deals = []storage.Deal{}
		}
		writeData(w, http.StatusOK, deals)
	}
}

func handleGetDeal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deal, err := deps.Store.GetDeal(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "deal not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get deal: %v", err)
			return
		}
		writeData(w, http.StatusOK, deal)
	}
}

func handleScoreDeal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deal, err := deps.Store.GetDeal(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "deal not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get deal: %v", err)
			return
		}
		writeData(w, http.StatusOK, deps.Advisor.ScoreDeal(r.Context(), deal))
	}
}

func handleScoreBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			DealIDs []string `json:"deal_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if len(req.DealIDs) == 0 {
			httpError(w, http.StatusBadRequest, "deal_ids is required")
			return
		}
		if len(req.DealIDs) > maxBatchScoreDeals {
			httpError(w, http.StatusBadRequest, "at most %d deals per batch", maxBatchScoreDeals)
			return
		}

		deals := make([]storage.Deal, 0, len(req.DealIDs))
		for _, id := range req.DealIDs {
			deal, err := deps.Store.GetDeal(id)
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "deal %s not found", id)
				return
			}
			if err != nil {
				httpError(w, http.StatusInternalServerError, "failed to get deal %s: %v", id, err)
				return
			}
			deals = append(deals, deal)
		}

		writeData(w, http.StatusOK, deps.Advisor.ScoreDeals(r.Context(), deals))
	}
}

func handlePricePulse(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Destination string  `json:"destination"`
			TargetPrice float64 `json:"target_price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Destination == "" {
			httpError(w, http.StatusBadRequest, "destination is required")
			return
		}
		if req.TargetPrice <= 0 || req.TargetPrice > 1_000_000 {
			err := fault.Newf(fault.InvalidRange, "target_price %.2f out of range (0, 1000000]", req.TargetPrice)
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}

		writeData(w, http.StatusOK, deps.Advisor.PredictPrice(r.Context(), req.Destination, req.TargetPrice))
	}
}

func handleItinerary(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Destination string `json:"destination"`
			Days        int    `json:"days"`
			Vibe        string `json:"vibe"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Destination == "" {
			httpError(w, http.StatusBadRequest, "destination is required")
			return
		}

		writeData(w, http.StatusOK, deps.Advisor.GenerateItinerary(r.Context(), req.Destination, req.Days, req.Vibe))
	}
}

func handlePackingList(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Destination string `json:"destination"`
			Days        int    `json:"days"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Destination == "" {
			httpError(w, http.StatusBadRequest, "destination is required")
			return
		}

		writeData(w, http.StatusOK, deps.Advisor.GeneratePackingList(r.Context(), req.Destination, req.Days))
	}
}

func handleCreateUser(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "name is required")
			return
		}
		if req.ID == "" {
			req.ID = uuid.New().String()
		}

		user := storage.User{
			ID:        req.ID,
			Name:      req.Name,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.CreateUser(user); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to create user: %v", err)
			return
		}
		created, err := deps.Store.GetUser(req.ID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to read back user: %v", err)
			return
		}
		writeData(w, http.StatusCreated, created)
	}
}

func handleUserPoints(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		user, err := deps.Store.GetUser(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get user: %v", err)
			return
		}

		limit := parseIntParam(r, "limit", 10, 100)
		txs, err := deps.Store.ListPointTransactions(id, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list transactions: %v", err)
			return
		}
		if txs == nil {
			txs = []storage.PointTransaction{}
		}

		writeData(w, http.StatusOK, map[string]any{
			"user_id":      user.ID,
			"points":       user.Points,
			"level":        user.Level,
			"transactions": txs,
		})
	}
}
