// Package reporting computes the dashboard summary for a tenant from its
// full order list. It performs no I/O.
package reporting

import (
	"time"

	"github.com/joao-fontenele/storeflow/internal/domain"
)

// RecognitionRule decides which orders count toward reported sales totals.
type RecognitionRule string

const (
	// RecognizeOnPayment counts orders whose payment status is paid.
	RecognizeOnPayment RecognitionRule = "payment"
	// RecognizeOnFulfillment counts orders that have been delivered.
	RecognizeOnFulfillment RecognitionRule = "fulfillment"
)

func ParseRecognitionRule(s string) (RecognitionRule, bool) {
	switch RecognitionRule(s) {
	case RecognizeOnPayment, RecognizeOnFulfillment:
		return RecognitionRule(s), true
	case "":
		return RecognizeOnPayment, true
	}
	return "", false
}

const DefaultWindowDays = 7

// DailySales is one calendar-day revenue bucket. Date is an ISO-8601 date.
type DailySales struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

// DashboardStats is the dashboard payload. The field names are part of the
// dashboard contract.
type DashboardStats struct {
	TotalSales     int64        `json:"totalSales"`
	TotalOrders    int          `json:"totalOrders"`
	TotalProducts  int          `json:"totalProducts"`
	TotalCustomers int          `json:"totalCustomers"`
	RecentSales    []DailySales `json:"recentSales"`
}

// Reporter summarizes a tenant's orders. The zero value recognizes revenue on
// payment over a 7-day window.
type Reporter struct {
	Rule       RecognitionRule
	WindowDays int
}

// Summarize reduces the given orders to dashboard statistics. It is a pure
// function of its inputs and the provided wall-clock time, and is safe to
// call concurrently.
//
// Customer emails are counted as stored, with no case normalization, so
// "A@x.com" and "a@x.com" are two customers.
func (r Reporter) Summarize(orders []domain.Order, productCount int, now time.Time) DashboardStats {
	window := r.WindowDays
	if window <= 0 {
		window = DefaultWindowDays
	}

	buckets := make(map[string]int64, window)
	days := make([]string, 0, window)
	for i := window - 1; i >= 0; i-- {
		day := now.UTC().AddDate(0, 0, -i).Format("2006-01-02")
		days = append(days, day)
		buckets[day] = 0
	}

	var totalSales int64
	customers := make(map[string]struct{})

	for _, order := range orders {
		customers[order.Customer.Email] = struct{}{}

		if !r.recognized(order) {
			continue
		}
		totalSales += order.Total

		day := order.CreatedAt.UTC().Format("2006-01-02")
		if _, ok := buckets[day]; ok {
			buckets[day] += order.Total
		}
	}

	recent := make([]DailySales, 0, window)
	for _, day := range days {
		recent = append(recent, DailySales{Date: day, Amount: buckets[day]})
	}

	return DashboardStats{
		TotalSales:     totalSales,
		TotalOrders:    len(orders),
		TotalProducts:  productCount,
		TotalCustomers: len(customers),
		RecentSales:    recent,
	}
}

func (r Reporter) recognized(order domain.Order) bool {
	if r.Rule == RecognizeOnFulfillment {
		return order.Status == domain.OrderStatusDelivered
	}
	return order.PaymentStatus == domain.PaymentStatusPaid
}
