package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/storeflow/internal/domain"
	"github.com/joao-fontenele/storeflow/internal/messaging"
	"github.com/joao-fontenele/storeflow/internal/products"
	"github.com/joao-fontenele/storeflow/internal/reporting"
)

// ProductInventory is the slice of the product store checkout needs:
// adjusting stock for ordered items and counting the catalog for stats.
type ProductInventory interface {
	DecrementInventory(ctx context.Context, productID string, quantity int) error
	CountByStore(ctx context.Context, storeID string) (int, error)
}

type Handler struct {
	repo      *OrderRepository
	inventory ProductInventory
	producer  *messaging.Producer
	reporter  reporting.Reporter
	logger    *slog.Logger
}

func NewHandler(repo *OrderRepository, inventory ProductInventory, producer *messaging.Producer, reporter reporting.Reporter, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		inventory: inventory,
		producer:  producer,
		reporter:  reporter,
		logger:    logger,
	}
}

type checkoutItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type checkoutRequest struct {
	Customer        domain.Customer `json:"customer"`
	Items           []checkoutItem  `json:"items"`
	ShippingAddress string          `json:"shipping_address"`
}

// HandleCheckout creates an order from a public storefront checkout. The
// total is always recomputed from the line items; a client-supplied total is
// never trusted.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Customer.Name == "" {
		h.writeError(w, http.StatusBadRequest, "customer.name: customer name is required")
		return
	}
	if req.Customer.Email == "" {
		h.writeError(w, http.StatusBadRequest, "customer.email: customer email is required")
		return
	}
	if req.ShippingAddress == "" {
		h.writeError(w, http.StatusBadRequest, "shipping_address: shipping address is required")
		return
	}
	if len(req.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "items: at least one item is required")
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	var total int64
	for _, item := range req.Items {
		if item.Name == "" {
			h.writeError(w, http.StatusBadRequest, "items: item name is required")
			return
		}
		if item.Quantity < 1 {
			h.writeError(w, http.StatusBadRequest, "items: item quantity must be at least 1")
			return
		}
		if item.Price < 0 {
			h.writeError(w, http.StatusBadRequest, "items: item price must not be negative")
			return
		}
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		total += int64(item.Quantity) * item.Price
	}

	order := &domain.Order{
		StoreID:         storeID,
		Customer:        req.Customer,
		Items:           items,
		Total:           total,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.repo.Create(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err, "store_id", storeID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Stock adjustment is best effort at checkout; a failed decrement is
	// logged but does not void a placed order.
	for _, item := range order.Items {
		if item.ProductID == "" {
			continue
		}
		if err := h.inventory.DecrementInventory(r.Context(), item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, products.ErrInsufficientInventory) {
				h.logger.Warn("order placed for more units than in stock",
					"order_id", order.OrderID, "product_id", item.ProductID, "quantity", item.Quantity)
				continue
			}
			h.logger.Error("failed to decrement inventory", "error", err,
				"order_id", order.OrderID, "product_id", item.ProductID)
		}
	}

	if h.producer != nil {
		event := domain.OrderCreatedEvent{
			OrderID:       order.OrderID,
			StoreID:       order.StoreID,
			CustomerName:  order.Customer.Name,
			CustomerEmail: order.Customer.Email,
			Items:         order.Items,
			Total:         order.Total,
			Timestamp:     order.CreatedAt,
		}
		if err := h.producer.Publish(r.Context(), order.OrderID, event); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_id", order.OrderID)
		}
	}

	h.logger.Info("order created", "order_id", order.OrderID, "store_id", storeID, "total", order.Total)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")

	orders, err := h.repo.ListByStore(r.Context(), storeID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "store_id", storeID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	id := r.PathValue("id")

	order, err := h.repo.GetByID(r.Context(), storeID, id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, "status: invalid order status")
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), storeID, id, req.Status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", order.OrderID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

type updatePaymentRequest struct {
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

func (h *Handler) HandleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	id := r.PathValue("id")

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.PaymentStatus.Valid() {
		h.writeError(w, http.StatusBadRequest, "payment_status: invalid payment status")
		return
	}

	order, err := h.repo.UpdatePaymentStatus(r.Context(), storeID, id, req.PaymentStatus)
	if err != nil {
		h.logger.Error("failed to update payment status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("payment status updated", "order_id", order.OrderID, "payment_status", order.PaymentStatus)
	h.writeJSON(w, http.StatusOK, order)
}

// HandleDashboardStats loads the tenant's full order list and reduces it to
// the dashboard summary.
func (h *Handler) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")

	orders, err := h.repo.ListByStore(r.Context(), storeID)
	if err != nil {
		h.logger.Error("failed to load orders for stats", "error", err, "store_id", storeID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	productCount, err := h.inventory.CountByStore(r.Context(), storeID)
	if err != nil {
		h.logger.Error("failed to count products for stats", "error", err, "store_id", storeID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stats := h.reporter.Summarize(orders, productCount, time.Now())
	h.writeJSON(w, http.StatusOK, stats)
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
