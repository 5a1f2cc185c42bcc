//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joao-fontenele/storeflow/internal/domain"
	"github.com/joao-fontenele/storeflow/internal/messaging"
	"github.com/joao-fontenele/storeflow/internal/orders"
	"github.com/joao-fontenele/storeflow/internal/products"
	"github.com/joao-fontenele/storeflow/internal/reporting"
	"github.com/joao-fontenele/storeflow/internal/stores"
	"github.com/joao-fontenele/storeflow/internal/worker"
)

func newAPIMux(db *sql.DB, producer *messaging.Producer) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storeRepo := stores.NewStoreRepository(db)
	productRepo := products.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	storeHandler := stores.NewHandler(storeRepo, logger)
	productHandler := products.NewHandler(productRepo, logger)
	orderHandler := orders.NewHandler(orderRepo, productRepo, producer, reporting.Reporter{}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /stores", storeHandler.HandleRegister)
	mux.HandleFunc("GET /stores", storeHandler.HandleList)
	mux.HandleFunc("GET /stores/slug/{slug}", storeHandler.HandleGetBySlug)
	mux.HandleFunc("GET /stores/subdomain/{subdomain}", storeHandler.HandleGetBySubdomain)
	mux.HandleFunc("GET /stores/check-subdomain/{subdomain}", storeHandler.HandleCheckSubdomain)
	mux.HandleFunc("PUT /stores/{id}", storeHandler.HandleUpdateSettings)
	mux.HandleFunc("PUT /stores/{id}/subdomain", storeHandler.HandleUpdateSubdomain)

	mux.HandleFunc("POST /stores/{storeId}/products", productHandler.HandleCreate)
	mux.HandleFunc("GET /stores/{storeId}/products", productHandler.HandleList)
	mux.HandleFunc("GET /stores/{storeId}/products/{id}", productHandler.HandleGet)
	mux.HandleFunc("PUT /stores/{storeId}/products/{id}", productHandler.HandleUpdate)
	mux.HandleFunc("DELETE /stores/{storeId}/products/{id}", productHandler.HandleDelete)

	mux.HandleFunc("POST /stores/{storeId}/orders", orderHandler.HandleCheckout)
	mux.HandleFunc("GET /stores/{storeId}/orders", orderHandler.HandleList)
	mux.HandleFunc("GET /stores/{storeId}/orders/{id}", orderHandler.HandleGet)
	mux.HandleFunc("PUT /stores/{storeId}/orders/{id}/status", orderHandler.HandleUpdateStatus)
	mux.HandleFunc("PUT /stores/{storeId}/orders/{id}/payment", orderHandler.HandleUpdatePayment)
	mux.HandleFunc("GET /stores/{storeId}/stats/dashboard", orderHandler.HandleDashboardStats)

	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string, wantStatus int, out any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, rec.Code, rec.Body.String())
	}

	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: failed to decode response: %v", method, path, err)
		}
	}
}

func registerStore(t *testing.T, mux *http.ServeMux, name, email string) *domain.Store {
	t.Helper()

	var store domain.Store
	body := fmt.Sprintf(`{"name": %q, "email": %q}`, name, email)
	doJSON(t, mux, http.MethodPost, "/stores", body, http.StatusCreated, &store)
	return &store
}

func TestStoreRegistrationAllocatesUniqueSlugs(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	mux := newAPIMux(db, nil)

	first := registerStore(t, mux, "Corner Bakery", "owner@corner.example")
	if first.Slug != "corner-bakery" {
		t.Fatalf("expected slug 'corner-bakery', got %q", first.Slug)
	}
	if first.Subdomain != first.Slug {
		t.Fatalf("expected subdomain to match slug, got %q", first.Subdomain)
	}
	if first.ThemeColor != domain.DefaultThemeColor {
		t.Fatalf("expected default theme color, got %q", first.ThemeColor)
	}
	if first.Currency != domain.DefaultCurrency {
		t.Fatalf("expected default currency, got %q", first.Currency)
	}
	if first.Description != "Welcome to my store!" {
		t.Fatalf("expected default description, got %q", first.Description)
	}

	second := registerStore(t, mux, "Corner Bakery", "other@corner.example")
	if second.Slug != "corner-bakery-1" {
		t.Fatalf("expected suffixed slug 'corner-bakery-1', got %q", second.Slug)
	}

	var fetched domain.Store
	doJSON(t, mux, http.MethodGet, "/stores/slug/corner-bakery-1", "", http.StatusOK, &fetched)
	if fetched.ID != second.ID {
		t.Fatalf("slug lookup returned wrong store: expected %s, got %s", second.ID, fetched.ID)
	}
}

func TestSubdomainAvailabilityAndUpdate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	mux := newAPIMux(db, nil)

	store := registerStore(t, mux, "Silk Road Spices", "owner@silk.example")

	var check struct {
		Available bool `json:"available"`
		Reserved  bool `json:"reserved"`
	}

	doJSON(t, mux, http.MethodGet, "/stores/check-subdomain/admin", "", http.StatusOK, &check)
	if check.Available || !check.Reserved {
		t.Fatalf("expected 'admin' to be reserved, got %+v", check)
	}

	doJSON(t, mux, http.MethodGet, "/stores/check-subdomain/silk-road-spices", "", http.StatusOK, &check)
	if check.Available {
		t.Fatal("expected own subdomain to be reported taken")
	}

	doJSON(t, mux, http.MethodGet, "/stores/check-subdomain/silk-road-spices?exclude_store_id="+store.ID, "", http.StatusOK, &check)
	if !check.Available {
		t.Fatal("expected own subdomain to be available when excluded")
	}

	doJSON(t, mux, http.MethodGet, "/stores/check-subdomain/spice-bazaar", "", http.StatusOK, &check)
	if !check.Available {
		t.Fatal("expected unused subdomain to be available")
	}

	var updated domain.Store
	doJSON(t, mux, http.MethodPut, "/stores/"+store.ID+"/subdomain",
		`{"subdomain": "spice-bazaar"}`, http.StatusOK, &updated)
	if updated.Subdomain != "spice-bazaar" {
		t.Fatalf("expected subdomain 'spice-bazaar', got %q", updated.Subdomain)
	}
	if updated.Slug != "spice-bazaar" {
		t.Fatalf("expected slug to follow subdomain, got %q", updated.Slug)
	}

	var fetched domain.Store
	doJSON(t, mux, http.MethodGet, "/stores/subdomain/spice-bazaar", "", http.StatusOK, &fetched)
	if fetched.ID != store.ID {
		t.Fatalf("subdomain lookup returned wrong store: expected %s, got %s", store.ID, fetched.ID)
	}

	doJSON(t, mux, http.MethodGet, "/stores/subdomain/silk-road-spices", "", http.StatusNotFound, nil)

	other := registerStore(t, mux, "Another Shop", "owner@another.example")
	doJSON(t, mux, http.MethodPut, "/stores/"+other.ID+"/subdomain",
		`{"subdomain": "spice-bazaar"}`, http.StatusConflict, nil)
}

func TestProductLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	mux := newAPIMux(db, nil)

	store := registerStore(t, mux, "Gadget Garage", "owner@gadget.example")
	base := "/stores/" + store.ID + "/products"

	var created domain.Product
	doJSON(t, mux, http.MethodPost, base,
		`{"name": "USB Hub", "price": 4500, "inventory": 20, "status": "active"}`,
		http.StatusCreated, &created)
	if created.Category != domain.DefaultProductCategory {
		t.Fatalf("expected default category, got %q", created.Category)
	}

	var draft domain.Product
	doJSON(t, mux, http.MethodPost, base,
		`{"name": "Prototype Dock", "price": 9900}`,
		http.StatusCreated, &draft)
	if draft.Status != domain.ProductStatusDraft {
		t.Fatalf("expected draft status by default, got %q", draft.Status)
	}

	var all []domain.Product
	doJSON(t, mux, http.MethodGet, base, "", http.StatusOK, &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}

	var active []domain.Product
	doJSON(t, mux, http.MethodGet, base+"?status=active", "", http.StatusOK, &active)
	if len(active) != 1 || active[0].ID != created.ID {
		t.Fatalf("expected only the active product, got %d products", len(active))
	}

	var updated domain.Product
	doJSON(t, mux, http.MethodPut, base+"/"+created.ID,
		`{"price": 3900, "inventory": 15}`, http.StatusOK, &updated)
	if updated.Price != 3900 {
		t.Fatalf("expected price 3900, got %d", updated.Price)
	}
	if updated.Inventory != 15 {
		t.Fatalf("expected inventory 15, got %d", updated.Inventory)
	}
	if updated.Name != "USB Hub" {
		t.Fatalf("expected name to be untouched, got %q", updated.Name)
	}

	var deleted map[string]bool
	doJSON(t, mux, http.MethodDelete, base+"/"+draft.ID, "", http.StatusOK, &deleted)
	if !deleted["deleted"] {
		t.Fatal("expected deleted flag in response")
	}
	doJSON(t, mux, http.MethodGet, base+"/"+draft.ID, "", http.StatusNotFound, nil)
}

var orderRefPattern = regexp.MustCompile(`^ORD-[0-9A-Z]+-\d{4}$`)

func TestCheckoutFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	mux := newAPIMux(db, nil)

	store := registerStore(t, mux, "Desert Roasters", "owner@roasters.example")

	var product domain.Product
	doJSON(t, mux, http.MethodPost, "/stores/"+store.ID+"/products",
		`{"name": "Dark Roast 500g", "price": 1500, "inventory": 10, "status": "active"}`,
		http.StatusCreated, &product)

	checkout := fmt.Sprintf(`{
		"customer": {"name": "Amira", "email": "amira@mail.example"},
		"items": [
			{"product_id": %q, "name": "Dark Roast 500g", "quantity": 3, "price": 1500},
			{"name": "Gift Wrap", "quantity": 1, "price": 200}
		],
		"shipping_address": "5 Rue de Marseille, Tunis"
	}`, product.ID)

	var order domain.Order
	doJSON(t, mux, http.MethodPost, "/stores/"+store.ID+"/orders", checkout, http.StatusCreated, &order)

	if !orderRefPattern.MatchString(order.OrderID) {
		t.Fatalf("unexpected order reference format: %q", order.OrderID)
	}
	if order.Total != 4700 {
		t.Fatalf("expected computed total 4700, got %d", order.Total)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %q", order.Status)
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("expected pending payment status, got %q", order.PaymentStatus)
	}

	var stocked domain.Product
	doJSON(t, mux, http.MethodGet, "/stores/"+store.ID+"/products/"+product.ID, "", http.StatusOK, &stocked)
	if stocked.Inventory != 7 {
		t.Fatalf("expected inventory 7 after checkout, got %d", stocked.Inventory)
	}

	var fetched domain.Order
	doJSON(t, mux, http.MethodGet, "/stores/"+store.ID+"/orders/"+order.ID, "", http.StatusOK, &fetched)
	if len(fetched.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(fetched.Items))
	}
	if fetched.Customer.Email != "amira@mail.example" {
		t.Fatalf("unexpected customer email: %q", fetched.Customer.Email)
	}

	second := fmt.Sprintf(`{
		"customer": {"name": "Karim", "email": "karim@mail.example"},
		"items": [{"product_id": %q, "name": "Dark Roast 500g", "quantity": 1, "price": 1500}],
		"shipping_address": "12 Avenue Habib Bourguiba, Sousse"
	}`, product.ID)

	var secondOrder domain.Order
	doJSON(t, mux, http.MethodPost, "/stores/"+store.ID+"/orders", second, http.StatusCreated, &secondOrder)
	if secondOrder.OrderID == order.OrderID {
		t.Fatalf("order references must be unique, both got %q", order.OrderID)
	}

	var list []domain.Order
	doJSON(t, mux, http.MethodGet, "/stores/"+store.ID+"/orders", "", http.StatusOK, &list)
	if len(list) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(list))
	}
}

func TestDashboardStats(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	mux := newAPIMux(db, nil)

	store := registerStore(t, mux, "Atlas Ceramics", "owner@atlas.example")

	doJSON(t, mux, http.MethodPost, "/stores/"+store.ID+"/products",
		`{"name": "Glazed Bowl", "price": 2500, "inventory": 30, "status": "active"}`,
		http.StatusCreated, nil)

	checkout := func(email string, quantity int) domain.Order {
		body := fmt.Sprintf(`{
			"customer": {"name": "Buyer", "email": %q},
			"items": [{"name": "Glazed Bowl", "quantity": %d, "price": 2500}],
			"shipping_address": "1 Place de la Kasbah, Tunis"
		}`, email, quantity)
		var order domain.Order
		doJSON(t, mux, http.MethodPost, "/stores/"+store.ID+"/orders", body, http.StatusCreated, &order)
		return order
	}

	paid := checkout("first@mail.example", 2)
	checkout("second@mail.example", 1)

	doJSON(t, mux, http.MethodPut, "/stores/"+store.ID+"/orders/"+paid.ID+"/payment",
		`{"payment_status": "paid"}`, http.StatusOK, nil)

	var stats reporting.DashboardStats
	doJSON(t, mux, http.MethodGet, "/stores/"+store.ID+"/stats/dashboard", "", http.StatusOK, &stats)

	if stats.TotalOrders != 2 {
		t.Fatalf("expected 2 orders, got %d", stats.TotalOrders)
	}
	if stats.TotalSales != 5000 {
		t.Fatalf("expected total sales 5000 (paid order only), got %d", stats.TotalSales)
	}
	if stats.TotalCustomers != 2 {
		t.Fatalf("expected 2 customers, got %d", stats.TotalCustomers)
	}
	if stats.TotalProducts != 1 {
		t.Fatalf("expected 1 product, got %d", stats.TotalProducts)
	}
	if len(stats.RecentSales) != reporting.DefaultWindowDays {
		t.Fatalf("expected %d daily buckets, got %d", reporting.DefaultWindowDays, len(stats.RecentSales))
	}

	today := time.Now().UTC().Format("2006-01-02")
	last := stats.RecentSales[len(stats.RecentSales)-1]
	if last.Date != today {
		t.Fatalf("expected last bucket to be today %s, got %s", today, last.Date)
	}
	if last.Amount != 5000 {
		t.Fatalf("expected today's bucket to hold 5000, got %d", last.Amount)
	}
}

type emailCapture struct {
	mu     sync.Mutex
	emails []map[string]string
}

func (e *emailCapture) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	e.emails = append(e.emails, req)
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"sent"}`)
}

func (e *emailCapture) getEmails() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]map[string]string, len(e.emails))
	copy(result, e.emails)
	return result
}

func TestOrderConfirmationDelivery(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	emailCap := &emailCapture{}
	emailMux := http.NewServeMux()
	emailMux.HandleFunc("POST /send", emailCap.handler)
	emailServer := httptest.NewServer(emailMux)
	defer emailServer.Close()

	producer := messaging.NewProducer(brokers, messaging.TopicOrderCreated)
	defer func() { _ = producer.Close() }()

	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderCreated, "confirmation-worker-test",
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	confirmationHandler := worker.NewConfirmationHandler(emailServer.URL, httpClient, logger)

	event := domain.OrderCreatedEvent{
		OrderID:       "ORD-TESTREF-0001",
		StoreID:       "store-1",
		CustomerName:  "Amira",
		CustomerEmail: "amira@mail.example",
		Items: []domain.OrderItem{
			{Name: "Dark Roast 500g", Quantity: 2, Price: 1500},
		},
		Total:     3000,
		Timestamp: time.Now().UTC(),
	}
	if err := producer.Publish(ctx, event.OrderID, event); err != nil {
		t.Fatalf("failed to publish event: %v", err)
	}

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(consumeCtx, confirmationHandler.Handle)
	}()

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if len(emailCap.getEmails()) > 0 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	stopConsumer()
	<-done

	emails := emailCap.getEmails()
	if len(emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(emails))
	}

	email := emails[0]
	if email["to"] != "amira@mail.example" {
		t.Fatalf("expected email to customer, got %q", email["to"])
	}
	if !strings.Contains(email["subject"], event.OrderID) {
		t.Fatalf("expected subject to contain order reference, got %q", email["subject"])
	}
}
