package coa

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

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

type createAccountRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Type        string  `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentID    *string `json:"parentId" validate:"omitempty,uuid"`
	Description string  `json:"description"`
}

type updateAccountRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId" validate:"omitempty,uuid"`
	ClearParent bool    `json:"clearParent"`
}

type accountResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	ParentID    *string `json:"parentId,omitempty"`
	IsActive    bool    `json:"isActive"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type hierarchyResponse struct {
	Account  accountResponse     `json:"account"`
	Balance  string              `json:"balance"`
	Children []hierarchyResponse `json:"children,omitempty"`
}

func toAccountResponse(a Account) accountResponse {
	resp := accountResponse{
		ID:          a.ID.String(),
		Code:        a.Code,
		Name:        a.Name,
		Type:        string(a.Type),
		IsActive:    a.IsActive,
		Description: a.Description,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
	if a.ParentID != nil {
		parent := a.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		Code:        req.Code,
		Name:        req.Name,
		Type:        AccountType(req.Type),
		Description: req.Description,
	}
	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parentId must be a UUID")
			return
		}
		input.ParentID = &parentID
	}
	account, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Warn("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{}
	if v := r.URL.Query().Get("type"); v != "" {
		accountType := AccountType(v)
		filter.Type = &accountType
	}
	if v := r.URL.Query().Get("isActive"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}
	if v := r.URL.Query().Get("parentId"); v != "" {
		parentID, err := uuid.Parse(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parentId must be a UUID")
			return
		}
		filter.ParentID = &parentID
	}
	accounts, err := h.service.FindAll(r.Context(), filter)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	account, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := UpdateInput{Name: req.Name, Description: req.Description, ClearParent: req.ClearParent}
	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "parentId must be a UUID")
			return
		}
		input.ParentID = &parentID
	}
	account, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Warn("update account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	account, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	var rootType *AccountType
	if v := r.URL.Query().Get("type"); v != "" {
		accountType := AccountType(v)
		rootType = &accountType
	}
	nodes, err := h.service.Hierarchy(r.Context(), rootType)
	if err != nil {
		h.logger.Error("account hierarchy", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toHierarchyResponses(nodes))
}

func toHierarchyResponses(nodes []*HierarchyNode) []hierarchyResponse {
	out := make([]hierarchyResponse, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, hierarchyResponse{
			Account:  toAccountResponse(node.Account),
			Balance:  node.Balance.String(),
			Children: toHierarchyResponses(node.Children),
		})
	}
	return out
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.New(shared.KindValidation, "VALIDATION_FAILED", "id must be a UUID").WithField("id"))
		return uuid.Nil, false
	}
	return id, true
}
