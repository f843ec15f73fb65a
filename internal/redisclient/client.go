package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-orders/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb           *redis.Client
	paymentRefTTL time.Duration
	reportTTL     time.Duration
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int, paymentRefTTL, reportTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		paymentRefTTL: paymentRefTTL,
		reportTTL:     reportTTL,
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// MarkPaymentSeen records a payment reference with SetNX. Returns true when
// this is the first sighting within the TTL. Advisory only: the database
// unique constraint is the actual idempotency authority.
func (c *Client) MarkPaymentSeen(ctx context.Context, paymentID string) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("payment:%s", paymentID), "1", c.paymentRefTTL).Result()
}

// InvalidateStock drops the catalog's cached stock counters for the given
// products so read views converge on the committed values.
func (c *Client) InvalidateStock(ctx context.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = fmt.Sprintf("product:stock:%d", id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// GetSalesReport reads a cached report snapshot
func (c *Client) GetSalesReport(ctx context.Context, key string) (*models.SalesReport, bool, error) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf("report:%s", key)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report models.SalesReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, true, nil
}

// SetSalesReport caches a report snapshot for the configured TTL
func (c *Client) SetSalesReport(ctx context.Context, key string, report *models.SalesReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("report:%s", key), raw, c.reportTTL).Err()
}
