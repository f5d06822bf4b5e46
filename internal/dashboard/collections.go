// Package dashboard serves read-only summaries over invoices and payments.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"invoicing-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

type CollectionPoint struct {
	Label    string // bucket başlangıcı, YYYY-MM-DD
	ByMethod map[models.PaymentMethod]decimal.Decimal
	Total    decimal.Decimal
}

type CollectionChart struct {
	Period Period
	From   time.Time
	To     time.Time
	Points []CollectionPoint
	Total  decimal.Decimal
}

// defaultCount: period başına varsayılan bucket sayısı
func defaultCount(p Period) int {
	switch p {
	case PeriodWeekly:
		return 8
	case PeriodMonthly:
		return 12
	}
	return 7
}

// bucketStart returns the start of the bucket containing t. Weeks start on Monday.
func bucketStart(p Period, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

func nextBucket(p Period, t time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// Collections sums payments per bucket and method for the count buckets ending
// with the one containing now. Empty buckets are included so charts stay dense.
func Collections(ctx context.Context, db *gorm.DB, p Period, count int, now time.Time) (*CollectionChart, error) {
	if count <= 0 {
		count = defaultCount(p)
	}

	first := bucketStart(p, now)
	for i := 1; i < count; i++ {
		switch p {
		case PeriodWeekly:
			first = first.AddDate(0, 0, -7)
		case PeriodMonthly:
			first = first.AddDate(0, -1, 0)
		default:
			first = first.AddDate(0, 0, -1)
		}
	}
	end := nextBucket(p, bucketStart(p, now))

	var payments []models.Payment
	if err := db.WithContext(ctx).
		Where("payment_date >= ? AND payment_date < ?", first, end).
		Order("payment_date ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}

	buckets := make(map[string]*CollectionPoint, count)
	for b := first; b.Before(end); b = nextBucket(p, b) {
		buckets[b.Format("2006-01-02")] = &CollectionPoint{
			Label:    b.Format("2006-01-02"),
			ByMethod: map[models.PaymentMethod]decimal.Decimal{},
			Total:    decimal.Zero,
		}
	}

	chart := &CollectionChart{Period: p, From: first, To: end.AddDate(0, 0, -1), Total: decimal.Zero}
	for _, pay := range payments {
		key := bucketStart(p, pay.PaymentDate.In(now.Location())).Format("2006-01-02")
		pt, ok := buckets[key]
		if !ok {
			continue
		}
		pt.ByMethod[pay.Method] = pt.ByMethod[pay.Method].Add(pay.Amount)
		pt.Total = pt.Total.Add(pay.Amount)
		chart.Total = chart.Total.Add(pay.Amount)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		chart.Points = append(chart.Points, *buckets[k])
	}
	return chart, nil
}

type collectionPointResponse struct {
	Label    string            `json:"label"`
	ByMethod map[string]string `json:"by_method"`
	Total    string            `json:"total"`
}

type collectionChartResponse struct {
	Period Period                    `json:"period"`
	From   string                    `json:"from"`
	To     string                    `json:"to"`
	Points []collectionPointResponse `json:"points"`
	Total  string                    `json:"total"`
}

// GET /api/dashboard/collections?period=daily&count=7
func CollectionsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := Period(c.Query("period", string(PeriodDaily)))
		switch period {
		case PeriodDaily, PeriodWeekly, PeriodMonthly:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "period daily, weekly veya monthly olmalı")
		}

		count := 0
		if s := c.Query("count"); s != "" {
			if _, err := fmt.Sscan(s, &count); err != nil || count <= 0 || count > 366 {
				return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
			}
		}

		chart, err := Collections(c.UserContext(), db, period, count, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}

		resp := collectionChartResponse{
			Period: chart.Period,
			From:   chart.From.Format("2006-01-02"),
			To:     chart.To.Format("2006-01-02"),
			Points: make([]collectionPointResponse, 0, len(chart.Points)),
			Total:  chart.Total.StringFixed(2),
		}
		for _, pt := range chart.Points {
			byMethod := make(map[string]string, len(pt.ByMethod))
			for m, v := range pt.ByMethod {
				byMethod[string(m)] = v.StringFixed(2)
			}
			resp.Points = append(resp.Points, collectionPointResponse{
				Label:    pt.Label,
				ByMethod: byMethod,
				Total:    pt.Total.StringFixed(2),
			})
		}
		return c.JSON(resp)
	}
}
