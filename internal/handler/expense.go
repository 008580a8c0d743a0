package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/expensetrack/expensetrack/internal/auth"
	"github.com/expensetrack/expensetrack/internal/handler/dto"
	"github.com/expensetrack/expensetrack/internal/model"
	"github.com/expensetrack/expensetrack/internal/service"
)

// ExpenseService is the expense API the handlers call.
type ExpenseService interface {
	List(ctx context.Context, callerID uuid.UUID) ([]*model.Expense, error)
	Create(ctx context.Context, callerID uuid.UUID, input service.CreateExpenseInput) (*model.Expense, error)
	Update(ctx context.Context, callerID uuid.UUID, rawID string, input service.UpdateExpenseInput) (*model.Expense, error)
	Delete(ctx context.Context, callerID uuid.UUID, rawID string) error
}

var _ ExpenseService = (*service.ExpenseService)(nil)

// ExpenseHandler handles HTTP requests for expense operations.
type ExpenseHandler struct {
	svc    ExpenseService
	logger *slog.Logger
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc ExpenseService, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/expense.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// Create handles POST /api/expense.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	callerID := auth.UserIDFromContext(r.Context())
	expense, err := h.svc.Create(r.Context(), callerID, service.CreateExpenseInput{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("expense_created",
		"expense_id", expense.ID,
		"user_id", callerID,
	)
	writeJSON(w, http.StatusCreated, expense)
}

// Update handles PUT /api/expense/{id}.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), service.UpdateExpenseInput{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
	})
	if err != nil {
		h.logDenied(r, err)
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// Delete handles DELETE /api/expense/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	callerID := auth.UserIDFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), callerID, id); err != nil {
		h.logDenied(r, err)
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("expense_deleted",
		"expense_id", id,
		"user_id", callerID,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExpenseHandler) logDenied(r *http.Request, err error) {
	if errors.Is(err, service.ErrForbidden) {
		h.logger.Warn("expense_access_denied",
			"expense_id", chi.URLParam(r, "id"),
			"user_id", auth.UserIDFromContext(r.Context()),
			"method", r.Method,
		)
	}
}
