package products

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storeflow/internal/domain"
)

type Handler struct {
	repo   *ProductRepository
	logger *slog.Logger
}

func NewHandler(repo *ProductRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type createProductRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          int64  `json:"price"`
	CompareAtPrice *int64 `json:"compare_at_price"`
	Inventory      int    `json:"inventory"`
	Category       string `json:"category"`
	Status         string `json:"status"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name: product name is required")
		return
	}
	if req.Price < 0 {
		h.writeError(w, http.StatusBadRequest, "price: price must not be negative")
		return
	}
	if req.Inventory < 0 {
		h.writeError(w, http.StatusBadRequest, "inventory: inventory must not be negative")
		return
	}

	status := domain.ProductStatus(req.Status)
	if req.Status == "" {
		status = domain.ProductStatusDraft
	} else if !status.Valid() {
		h.writeError(w, http.StatusBadRequest, "status: invalid product status")
		return
	}

	category := req.Category
	if category == "" {
		category = domain.DefaultProductCategory
	}

	product := &domain.Product{
		StoreID:        r.PathValue("storeId"),
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		CompareAtPrice: req.CompareAtPrice,
		Inventory:      req.Inventory,
		Category:       category,
		Status:         status,
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err, "store_id", product.StoreID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "store_id", product.StoreID)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	onlyActive := r.URL.Query().Get("status") == "active"

	products, err := h.repo.ListByStore(r.Context(), storeID, onlyActive)
	if err != nil {
		h.logger.Error("failed to list products", "error", err, "store_id", storeID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	id := r.PathValue("id")

	product, err := h.repo.GetByID(r.Context(), storeID, id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

type updateProductRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Price          *int64  `json:"price"`
	CompareAtPrice *int64  `json:"compare_at_price"`
	Inventory      *int    `json:"inventory"`
	Category       *string `json:"category"`
	Status         *string `json:"status"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	id := r.PathValue("id")

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.repo.GetByID(r.Context(), storeID, id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.CompareAtPrice != nil {
		product.CompareAtPrice = req.CompareAtPrice
	}
	if req.Inventory != nil {
		product.Inventory = *req.Inventory
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Status != nil {
		product.Status = domain.ProductStatus(*req.Status)
	}

	if product.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name: product name is required")
		return
	}
	if product.Price < 0 {
		h.writeError(w, http.StatusBadRequest, "price: price must not be negative")
		return
	}
	if product.Inventory < 0 {
		h.writeError(w, http.StatusBadRequest, "inventory: inventory must not be negative")
		return
	}
	if !product.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, "status: invalid product status")
		return
	}

	updated, err := h.repo.Update(r.Context(), product)
	if err != nil {
		h.logger.Error("failed to update product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if updated == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product updated", "product_id", id, "store_id", storeID)
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	id := r.PathValue("id")

	deleted, err := h.repo.Delete(r.Context(), storeID, id)
	if err != nil {
		h.logger.Error("failed to delete product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !deleted {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product deleted", "product_id", id, "store_id", storeID)
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
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
