package stores

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storeflow/internal/domain"
	"github.com/joao-fontenele/storeflow/internal/identifier"
	"github.com/joao-fontenele/storeflow/internal/storage"
)

// createRetries bounds how many times registration re-runs slug allocation
// after losing a check-then-act race to a concurrent insert.
const createRetries = 3

type Handler struct {
	repo      *StoreRepository
	allocator identifier.Allocator
	logger    *slog.Logger
}

func NewHandler(repo *StoreRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name: store name is required")
		return
	}
	if req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "email: store email is required")
		return
	}

	candidate := identifier.DeriveSlug(req.Name)
	if candidate == "" {
		h.writeError(w, http.StatusBadRequest, "name: store name must contain letters or digits")
		return
	}

	store := &domain.Store{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Description: req.Description,
		ThemeColor:  domain.DefaultThemeColor,
		Currency:    domain.DefaultCurrency,
		Timezone:    domain.DefaultTimezone,
		IsActive:    true,
	}
	if store.Description == "" {
		store.Description = "Welcome to my store!"
	}

	// The allocator only minimizes collisions; the unique index on the slug
	// column is the real guarantee. A duplicate-key insert means another
	// registration won the race, so allocation is re-run against the new state.
	var err error
	for attempt := 0; attempt < createRetries; attempt++ {
		store.Slug, err = h.allocator.AllocateSlug(r.Context(), candidate, h.repo.SlugExists)
		if err != nil {
			break
		}
		store.Subdomain = store.Slug

		err = h.repo.Create(r.Context(), store)
		if err == nil || !storage.IsUniqueViolation(err) {
			break
		}
		h.logger.Warn("slug taken by concurrent registration, reallocating", "slug", store.Slug)
	}

	if err != nil {
		if errors.Is(err, identifier.ErrAllocationExhausted) {
			h.logger.Error("slug allocation exhausted", "candidate", candidate)
			h.writeError(w, http.StatusInternalServerError, "unable to allocate a store identifier")
			return
		}
		h.logger.Error("failed to register store", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("store registered", "store_id", store.ID, "slug", store.Slug)
	h.writeJSON(w, http.StatusCreated, store)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	stores, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list stores", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, stores)
}

func (h *Handler) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	h.respondStore(w, r, func() (*domain.Store, error) {
		return h.repo.GetBySlug(r.Context(), r.PathValue("slug"))
	})
}

func (h *Handler) HandleGetBySubdomain(w http.ResponseWriter, r *http.Request) {
	h.respondStore(w, r, func() (*domain.Store, error) {
		return h.repo.GetBySubdomain(r.Context(), r.PathValue("subdomain"))
	})
}

func (h *Handler) respondStore(w http.ResponseWriter, r *http.Request, lookup func() (*domain.Store, error)) {
	store, err := lookup()
	if err != nil {
		h.logger.Error("failed to get store", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if store == nil {
		h.writeError(w, http.StatusNotFound, "store not found")
		return
	}

	h.writeJSON(w, http.StatusOK, store)
}

type availabilityResponse struct {
	Available bool `json:"available"`
	Reserved  bool `json:"reserved"`
}

func (h *Handler) HandleCheckSubdomain(w http.ResponseWriter, r *http.Request) {
	subdomain := r.PathValue("subdomain")

	// Reserved names never hit the database.
	if identifier.IsReserved(subdomain) {
		h.writeJSON(w, http.StatusOK, availabilityResponse{Available: false, Reserved: true})
		return
	}

	taken, err := h.repo.SubdomainTaken(r.Context(), subdomain, r.URL.Query().Get("exclude_store_id"))
	if err != nil {
		h.logger.Error("failed to check subdomain", "error", err, "subdomain", subdomain)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, availabilityResponse{Available: !taken})
}

type updateSettingsRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
	ThemeColor  *string `json:"theme_color"`
	Currency    *string `json:"currency"`
	Timezone    *string `json:"timezone"`
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get store", "error", err, "store_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if store == nil {
		h.writeError(w, http.StatusNotFound, "store not found")
		return
	}

	applyIfSet(&store.Name, req.Name)
	applyIfSet(&store.Email, req.Email)
	applyIfSet(&store.Phone, req.Phone)
	applyIfSet(&store.Address, req.Address)
	applyIfSet(&store.Description, req.Description)
	applyIfSet(&store.ThemeColor, req.ThemeColor)
	applyIfSet(&store.Currency, req.Currency)
	applyIfSet(&store.Timezone, req.Timezone)

	if store.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name: store name is required")
		return
	}

	updated, err := h.repo.UpdateSettings(r.Context(), store)
	if err != nil {
		h.logger.Error("failed to update store", "error", err, "store_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if updated == nil {
		h.writeError(w, http.StatusNotFound, "store not found")
		return
	}

	h.logger.Info("store settings updated", "store_id", id)
	h.writeJSON(w, http.StatusOK, updated)
}

func applyIfSet(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

type updateSubdomainRequest struct {
	Subdomain string `json:"subdomain"`
}

func (h *Handler) HandleUpdateSubdomain(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateSubdomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := identifier.ValidateSubdomain(req.Subdomain); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	taken, err := h.repo.SubdomainTaken(r.Context(), req.Subdomain, id)
	if err != nil {
		h.logger.Error("failed to check subdomain", "error", err, "subdomain", req.Subdomain)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if taken {
		h.writeError(w, http.StatusConflict, "subdomain is already taken")
		return
	}

	store, err := h.repo.UpdateIdentifier(r.Context(), id, req.Subdomain)
	if err != nil {
		// The pre-check above raced a concurrent claim.
		if storage.IsUniqueViolation(err) {
			h.writeError(w, http.StatusConflict, "subdomain is already taken")
			return
		}
		h.logger.Error("failed to update subdomain", "error", err, "store_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if store == nil {
		h.writeError(w, http.StatusNotFound, "store not found")
		return
	}

	h.logger.Info("subdomain updated", "store_id", id, "subdomain", store.Subdomain)
	h.writeJSON(w, http.StatusOK, store)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
