package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"routeopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu         sync.Mutex
	solves     map[string]model.SolveRecord
	solveOrder []string // newest first
	subs       []model.Subscription
	deliveries map[string]*memDelivery
	delivOrder []string // newest first
}

func NewMemory() *Memory {
	return &Memory{
		solves:     map[string]model.SolveRecord{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments WebhookDelivery with scheduling/metrics state
type memDelivery struct {
	WebhookDelivery
	Status        string // pending, delivered, failed
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	CreatedAt     time.Time
	DeliveredAt   *time.Time
}

func (m *Memory) RecordSolve(ctx context.Context, rec model.SolveRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.solves[rec.ID] = rec
	m.solveOrder = append([]string{rec.ID}, m.solveOrder...)
	return rec.ID, nil
}

func (m *Memory) GetSolve(ctx context.Context, id string) (model.SolveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.solves[id]
	if !ok {
		return model.SolveRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListSolves(ctx context.Context, cursor string, limit int) ([]model.SolveRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil && n >= 0 {
			start = n
		}
	}
	if start >= len(m.solveOrder) {
		return []model.SolveRecord{}, "", nil
	}
	end := start + limit
	if end > len(m.solveOrder) {
		end = len(m.solveOrder)
	}
	out := make([]model.SolveRecord, 0, end-start)
	for _, id := range m.solveOrder[start:end] {
		rec := m.solves[id]
		rec.Response = nil // list view stays light
		out = append(out, rec)
	}
	next := ""
	if end < len(m.solveOrder) {
		next = strconv.Itoa(end)
	}
	return out, next, nil
}

func (m *Memory) SolveStats(ctx context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStatus := map[string]int{}
	bySolver := map[string]int{}
	var totalElapsed int64
	for _, rec := range m.solves {
		byStatus[rec.Status]++
		bySolver[rec.Solver]++
		totalElapsed += rec.ElapsedMs
	}
	stats := map[string]any{
		"solves":   len(m.solves),
		"byStatus": byStatus,
		"bySolver": bySolver,
	}
	if len(m.solves) > 0 {
		stats["avgElapsedMs"] = totalElapsed / int64(len(m.solves))
	}
	return stats, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil && n >= 0 {
			start = n
		}
	}
	if start >= len(m.subs) {
		return []model.Subscription{}, "", nil
	}
	end := start + limit
	if end > len(m.subs) {
		end = len(m.subs)
	}
	out := make([]model.Subscription, 0, end-start)
	for _, s := range m.subs[start:end] {
		s.Secret = ""
		out = append(out, s)
	}
	next := ""
	if end < len(m.subs) {
		next = strconv.Itoa(end)
	}
	return out, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subs {
		if s.ID == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{ID: id, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload},
		Status:          "pending",
		NextAttemptAt:   time.Now(),
		CreatedAt:       time.Now().UTC(),
	}
	m.delivOrder = append([]string{id}, m.delivOrder...)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	var due []*memDelivery
	for _, d := range m.deliveries {
		if d.Status == "pending" && !d.NextAttemptAt.After(now) {
			due = append(due, d)
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].CreatedAt.Before(due[b].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	out := make([]WebhookDelivery, len(due))
	for i, d := range due {
		out[i] = d.WebhookDelivery
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now().UTC()
		d.DeliveredAt = &now
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	for _, id := range m.delivOrder {
		if status == "" || m.deliveries[id].Status == status {
			ids = append(ids, id)
		}
	}
	start := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil && n >= 0 {
			start = n
		}
	}
	if start >= len(ids) {
		return []map[string]any{}, "", nil
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]map[string]any, 0, end-start)
	for _, id := range ids[start:end] {
		d := m.deliveries[id]
		out = append(out, map[string]any{
			"id":           d.ID,
			"eventType":    d.EventType,
			"status":       d.Status,
			"attempts":     d.Attempts,
			"url":          d.URL,
			"lastError":    d.LastError,
			"responseCode": d.ResponseCode,
			"latencyMs":    d.LatencyMs,
			"createdAt":    d.CreatedAt,
		})
	}
	next := ""
	if end < len(ids) {
		next = strconv.Itoa(end)
	}
	return out, next, nil
}
