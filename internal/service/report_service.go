package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront-orders/internal/models"
	"storefront-orders/internal/util"

	"go.uber.org/zap"
)

// ReportService is the read-only sales aggregation reader. It never mutates
// state and takes no locks: a committed-read snapshot is consistent as of
// read time, which is all reporting needs.
type ReportService struct {
	store  ReportStore
	cache  ReportCache
	logger *zap.Logger
}

// NewReportService creates a new report service
func NewReportService(store ReportStore, cache ReportCache) *ReportService {
	return &ReportService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// SalesReport sums delivered-order revenue in [from, to) and groups line
// revenue by product. Only the range filter runs in the store; grouping and
// ordering happen here.
func (r *ReportService) SalesReport(ctx context.Context, from, to time.Time) (*models.SalesReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.SalesReport")
	defer span.End()

	if !to.After(from) {
		return nil, &models.ValidationError{Field: "to", Reason: "must be after from"}
	}

	start := time.Now()
	defer func() {
		util.SalesReportLatency.Observe(time.Since(start).Seconds())
	}()

	key := cacheKey(from, to)
	if cached, ok, err := r.cache.GetSalesReport(ctx, key); err != nil {
		r.logger.Warn("Report cache read failed", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	orders, err := r.store.DeliveredOrdersBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to scan delivered orders: %w", err)
	}

	report := &models.SalesReport{
		From:      from,
		To:        to,
		LineItems: []models.SalesLineItem{},
	}

	if len(orders) == 0 {
		return report, nil
	}

	orderIDs := make([]int64, 0, len(orders))
	for _, order := range orders {
		report.TotalSales += order.TotalAmount
		report.NumberOfOrders++
		orderIDs = append(orderIDs, order.ID)
	}

	items, err := r.store.ItemsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	report.LineItems = groupLineItems(items)

	if err := r.cache.SetSalesReport(ctx, key, report); err != nil {
		r.logger.Warn("Report cache write failed", zap.Error(err))
	}

	return report, nil
}

// groupLineItems aggregates snapshot rows by product, highest revenue first.
func groupLineItems(items []models.OrderItem) []models.SalesLineItem {
	byProduct := make(map[int64]*models.SalesLineItem)
	for _, item := range items {
		line, ok := byProduct[item.ProductID]
		if !ok {
			line = &models.SalesLineItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Category:  item.Category,
			}
			byProduct[item.ProductID] = line
		}
		line.UnitsSold += item.Quantity
		line.Revenue += item.Subtotal
	}

	lines := make([]models.SalesLineItem, 0, len(byProduct))
	for _, line := range byProduct {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Revenue != lines[j].Revenue {
			return lines[i].Revenue > lines[j].Revenue
		}
		return lines[i].ProductID < lines[j].ProductID
	})
	return lines
}

func cacheKey(from, to time.Time) string {
	return fmt.Sprintf("sales:%d:%d", from.Unix(), to.Unix())
}
