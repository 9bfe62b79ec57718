package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/ledgerlake/ledgerlake/internal/silver/balance"
	"github.com/ledgerlake/ledgerlake/jobs"
)

// BalanceReader serves balance chains out of the silver layer.
type BalanceReader interface {
	Chain(ctx context.Context, accountNumber int64) ([]balance.Row, error)
}

// Enqueuer submits pipeline tasks to the queue.
type Enqueuer interface {
	EnqueueBronzeSync(ctx context.Context, payload jobs.BronzeSyncPayload) (*asynq.TaskInfo, error)
	EnqueueSilverRefresh(ctx context.Context, payload jobs.SilverRefreshPayload) (*asynq.TaskInfo, error)
	EnqueueBalanceRecompute(ctx context.Context, payload jobs.BalanceRecomputePayload) (*asynq.TaskInfo, error)
}

// Handler serves the operational API.
type Handler struct {
	balances BalanceReader
	cache    *Cache
	queue    Enqueuer
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs the operational API handler.
func NewHandler(balances BalanceReader, cache *Cache, queue Enqueuer, logger *slog.Logger) *Handler {
	return &Handler{
		balances: balances,
		cache:    cache,
		queue:    queue,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// MountRoutes attaches the operational routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Get("/v1/balances/{accountNumber}", h.balanceChain)
	r.Post("/v1/sync", h.triggerSync)
	r.Post("/v1/refresh", h.triggerRefresh)
	r.Post("/v1/recompute", h.triggerRecompute)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chainResponse struct {
	AccountNumber int64         `json:"account_number"`
	Rows          []balance.Row `json:"rows"`
}

func (h *Handler) balanceChain(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseInt(chi.URLParam(r, "accountNumber"), 10, 64)
	if err != nil {
		http.Error(w, "invalid account number", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	key, err := h.cache.ChainKey(ctx, number)
	if err != nil {
		h.fail(w, "build cache key", err)
		return
	}
	var resp chainResponse
	err = h.cache.FetchJSON(ctx, key, &resp, func(ctx context.Context) (any, error) {
		rows, err := h.balances.Chain(ctx, number)
		if err != nil {
			return nil, err
		}
		return chainResponse{AccountNumber: number, Rows: rows}, nil
	})
	if err != nil {
		h.fail(w, "read balance chain", err)
		return
	}
	if len(resp.Rows) == 0 {
		http.Error(w, "account has no balances", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type syncRequest struct {
	FullRefresh bool `json:"full_refresh"`
}

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := h.queue.EnqueueBronzeSync(r.Context(), jobs.BronzeSyncPayload{FullRefresh: req.FullRefresh})
	if err != nil {
		h.fail(w, "enqueue bronze sync", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
}

type refreshRequest struct {
	FullRefresh bool     `json:"full_refresh"`
	Tables      []string `json:"tables" validate:"omitempty,dive,oneof=accounts periods entries lines balances"`
}

func (h *Handler) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := h.queue.EnqueueSilverRefresh(r.Context(), jobs.SilverRefreshPayload{
		FullRefresh: req.FullRefresh,
		Tables:      req.Tables,
	})
	if err != nil {
		h.fail(w, "enqueue silver refresh", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
}

type recomputeRequest struct {
	PeriodID int64 `json:"period_id" validate:"gte=0"`
}

func (h *Handler) triggerRecompute(w http.ResponseWriter, r *http.Request) {
	var req recomputeRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := h.queue.EnqueueBalanceRecompute(r.Context(), jobs.BalanceRecomputePayload{PeriodID: req.PeriodID})
	if err != nil {
		h.fail(w, "enqueue balance recompute", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
