package book

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bukubesar/bukubesar/internal/ledger/journal"
	"github.com/bukubesar/bukubesar/internal/ledger/shared"
	"github.com/bukubesar/bukubesar/internal/platform/httpx"
)

type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type entryRequest struct {
	AccountID   string `json:"accountId" validate:"required,uuid"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description"`
}

type transactionRequest struct {
	Date        string         `json:"date" validate:"required"`
	Description string         `json:"description" validate:"required"`
	CreatedBy   string         `json:"createdBy" validate:"required"`
	Entries     []entryRequest `json:"entries" validate:"required,min=1,dive"`
}

type rollbackRequest struct {
	Reason     string `json:"reason" validate:"required"`
	RollbackBy string `json:"rollbackBy" validate:"required"`
}

type entryResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"accountId"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
}

type transactionResponse struct {
	ID              string          `json:"id"`
	ReferenceNumber string          `json:"referenceNumber"`
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	TotalAmount     string          `json:"totalAmount"`
	CreatedBy       string          `json:"createdBy"`
	CreatedAt       string          `json:"createdAt"`
	Entries         []entryResponse `json:"entries"`
}

func toTransactionResponse(t journal.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:              t.ID.String(),
		ReferenceNumber: t.ReferenceNumber,
		Date:            t.Date.Format(time.RFC3339),
		Description:     t.Description,
		TotalAmount:     t.TotalAmount.StringFixed(2),
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
	}
	for _, e := range t.Entries {
		resp.Entries = append(resp.Entries, entryResponse{
			ID:          e.ID.String(),
			AccountID:   e.AccountID.String(),
			Debit:       e.Debit.StringFixed(2),
			Credit:      e.Credit.StringFixed(2),
			Description: e.Description,
		})
	}
	return resp
}

// parseAmount accepts a decimal string, treating empty as zero. Amounts stay
// strings on the wire and decimals everywhere else.
func parseAmount(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, shared.Newf(shared.KindValidation, "VALIDATION_FAILED", "%s must be a decimal amount", field).WithField(field)
	}
	return value, nil
}

func (h *Handler) toInput(req transactionRequest) (TransactionInput, error) {
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		if date, err = time.Parse("2006-01-02", req.Date); err != nil {
			return TransactionInput{}, shared.New(shared.KindValidation, "VALIDATION_FAILED", "date must be RFC3339 or YYYY-MM-DD").WithField("date")
		}
	}
	input := TransactionInput{
		Date:        date,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
	}
	for i, e := range req.Entries {
		accountID, err := uuid.Parse(e.AccountID)
		if err != nil {
			return TransactionInput{}, shared.New(shared.KindValidation, "VALIDATION_FAILED", "accountId must be a UUID").WithField(fmt.Sprintf("entries[%d].accountId", i))
		}
		debit, err := parseAmount(e.Debit, fmt.Sprintf("entries[%d].debit", i))
		if err != nil {
			return TransactionInput{}, err
		}
		credit, err := parseAmount(e.Credit, fmt.Sprintf("entries[%d].credit", i))
		if err != nil {
			return TransactionInput{}, err
		}
		input.Entries = append(input.Entries, EntryInput{
			AccountID:   accountID,
			Debit:       debit,
			Credit:      credit,
			Description: e.Description,
		})
	}
	return input, nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := h.toInput(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := h.service.ProcessTransaction(r.Context(), input)
	if err != nil {
		h.logger.Warn("process transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *Handler) ValidateBalance(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	input, err := h.toInput(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result := h.service.ValidateTransactionBalance(input.Entries)
	type validationError struct {
		Code    string `json:"code"`
		Line    int    `json:"line"`
		Message string `json:"message"`
	}
	out := struct {
		IsValid      bool              `json:"isValid"`
		TotalDebits  string            `json:"totalDebits"`
		TotalCredits string            `json:"totalCredits"`
		Difference   string            `json:"difference"`
		Errors       []validationError `json:"errors,omitempty"`
	}{
		IsValid:      result.IsValid,
		TotalDebits:  result.TotalDebits.StringFixed(2),
		TotalCredits: result.TotalCredits.StringFixed(2),
		Difference:   result.Difference.StringFixed(2),
	}
	for _, e := range result.Errors {
		out.Errors = append(out.Errors, validationError{Code: e.Code, Line: e.Line, Message: e.Message})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	tx, err := h.service.FindTransaction(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (h *Handler) Rollback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	var req rollbackRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reversal, err := h.service.Rollback(r.Context(), id, req.Reason, req.RollbackBy)
	if err != nil {
		h.logger.Warn("rollback transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransactionResponse(reversal))
}

func (h *Handler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountId must be a UUID")
		return
	}
	asOf, err := parseAsOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bal, err := h.service.AccountBalance(r.Context(), id, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"accountId": id.String(),
		"balance":   bal.StringFixed(2),
	})
}

func (h *Handler) MultipleBalances(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("accountIds")
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountIds is required")
		return
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "accountIds must be comma-separated UUIDs")
			return
		}
		ids = append(ids, id)
	}
	asOf, err := parseAsOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.MultipleAccountBalances(r.Context(), ids, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balances := make(map[string]string, len(result.Balances))
	for id, bal := range result.Balances {
		balances[id.String()] = bal.StringFixed(2)
	}
	failures := make(map[string]string, len(result.Errors))
	for id, accErr := range result.Errors {
		failures[id.String()] = accErr.Error()
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"balances": balances,
		"errors":   failures,
	})
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type row struct {
		AccountID     string `json:"accountId"`
		Code          string `json:"code"`
		Name          string `json:"name"`
		Type          string `json:"type"`
		DebitBalance  string `json:"debitBalance"`
		CreditBalance string `json:"creditBalance"`
		Balance       string `json:"balance"`
		Display       string `json:"display"`
	}
	out := make([]row, 0, len(rows))
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, r := range rows {
		out = append(out, row{
			AccountID:     r.AccountID.String(),
			Code:          r.Code,
			Name:          r.Name,
			Type:          r.Type,
			DebitBalance:  r.DebitBalance.StringFixed(2),
			CreditBalance: r.CreditBalance.StringFixed(2),
			Balance:       r.Balance.StringFixed(2),
			Display:       r.Display,
		})
		totalDebit = totalDebit.Add(r.DebitBalance)
		totalCredit = totalCredit.Add(r.CreditBalance)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":      out,
		"totalDebits":  totalDebit.StringFixed(2),
		"totalCredits": totalCredit.StringFixed(2),
		"balanced":     totalDebit.Sub(totalCredit).Abs().LessThan(decimal.RequireFromString("0.01")),
	})
}

func parseAsOf(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("asOf")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err = time.Parse("2006-01-02", raw); err != nil {
			return nil, shared.New(shared.KindValidation, "VALIDATION_FAILED", "asOf must be RFC3339 or YYYY-MM-DD").WithField("asOf")
		}
	}
	return &t, nil
}
