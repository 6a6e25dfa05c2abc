package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/predictpay/backend/internal/ledger"
	"github.com/predictpay/backend/internal/registry"
	"github.com/predictpay/backend/internal/tasks"
	"github.com/predictpay/backend/internal/users"
)

// API is the thin HTTP surface over the services. It owns request decoding
// and error-to-status mapping only; all business rules live below it.
type API struct {
	Users    users.Service
	Models   registry.Service
	Ledger   ledger.Service
	Tasks    tasks.Service
	Logger   *slog.Logger
	validate *validator.Validate
}

func NewAPI(usersSvc users.Service, modelsSvc registry.Service, ledgerSvc ledger.Service, tasksSvc tasks.Service, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		Users:    usersSvc,
		Models:   modelsSvc,
		Ledger:   ledgerSvc,
		Tasks:    tasksSvc,
		Logger:   logger,
		validate: validator.New(),
	}
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/users", a.createUser)
		r.Delete("/users/{id}", a.deleteUser)
		r.Get("/models", a.listModels)
		r.Post("/predict", a.submitPrediction)
		r.Get("/tasks/{id}", a.getTask)
		r.Get("/tasks/history/{user_id}", a.taskHistory)
		r.Route("/balance", func(r chi.Router) {
			r.Get("/{user_id}", a.getBalance)
			r.Post("/top_up/{user_id}", a.topUp)
			r.Get("/transactions/{user_id}", a.transactionHistory)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps service errors onto HTTP statuses. Caller errors
// surface with their message; anything else is a 500 with the detail kept
// in the logs.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, tasks.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, registry.ErrModelNotFound),
		errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, tasks.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		a.Logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func userIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// --- users ---

type createUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	u, err := a.Users.Register(r.Context(), req.Name, req.Email)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	if err := a.Users.Delete(r.Context(), id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- models ---

func (a *API) listModels(w http.ResponseWriter, r *http.Request) {
	list, err := a.Models.ListModels(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- prediction ---

type predictRequest struct {
	UserID  string `json:"user_id" validate:"required,uuid"`
	ModelID int32  `json:"model_id" validate:"required"`
	Input   string `json:"input" validate:"required"`
}

type predictResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (a *API) submitPrediction(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	userID := uuid.MustParse(req.UserID)
	// Submission is for active users only; history stays open to deleted ones.
	if _, err := a.Users.Get(r.Context(), userID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	task, err := a.Tasks.Submit(r.Context(), userID, req.ModelID, req.Input)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, predictResponse{
		TaskID: task.ID.String(),
		Status: string(task.Status),
	})
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task id"})
		return
	}
	task, err := a.Tasks.Get(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) taskHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "user_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	// GetAny: task history of a soft-deleted user remains readable.
	if _, err := a.Users.GetAny(r.Context(), userID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	list, err := a.Tasks.History(r.Context(), userID, queryLimit(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- balance ---

type balanceResponse struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
}

func (a *API) getBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "user_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	if _, err := a.Users.Get(r.Context(), userID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	amount, err := a.Ledger.BalanceOf(r.Context(), userID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID.String(), AmountCents: amount})
}

type topUpRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

func (a *API) topUp(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "user_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if _, err := a.Ledger.TopUp(r.Context(), userID, req.AmountCents); err != nil {
		a.writeServiceError(w, err)
		return
	}
	amount, err := a.Ledger.BalanceOf(r.Context(), userID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID.String(), AmountCents: amount})
}

func (a *API) transactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r, "user_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	if _, err := a.Users.GetAny(r.Context(), userID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	list, err := a.Ledger.Transactions(r.Context(), userID, queryLimit(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}
