package store

import (
	"context"
	"errors"
	"time"

	"routeopt/internal/model"
)

// Store is the persistence interface used by the API server: solve history,
// webhook subscriptions, and the webhook delivery queue.
type Store interface {
	// Solve history
	RecordSolve(ctx context.Context, rec model.SolveRecord) (string, error)
	GetSolve(ctx context.Context, id string) (model.SolveRecord, error)
	ListSolves(ctx context.Context, cursor string, limit int) ([]model.SolveRecord, string, error)
	SolveStats(ctx context.Context) (map[string]any, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error)
}

// WebhookDelivery is one queued delivery attempt.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Attempts       int
}

var ErrNotFound = errors.New("not found")
