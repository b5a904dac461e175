package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"routeopt/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// EnsureSchema creates the tables when missing (dev helper; production runs
// proper migrations).
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS solves (
			id UUID PRIMARY KEY,
			solver TEXT NOT NULL,
			status TEXT NOT NULL,
			total BIGINT NOT NULL DEFAULT 0,
			vehicles INT NOT NULL DEFAULT 0,
			jobs INT NOT NULL DEFAULT 0,
			partitions BIGINT NOT NULL DEFAULT 0,
			elapsed_ms BIGINT NOT NULL DEFAULT 0,
			response JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS solves_created_at_idx ON solves (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL,
			events TEXT NOT NULL DEFAULT '',
			secret TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			subscription_id UUID NOT NULL,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			payload JSONB,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT NOT NULL DEFAULT '',
			response_code INT NOT NULL DEFAULT 0,
			latency_ms INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			delivered_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS webhook_deliveries_due_idx ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) RecordSolve(ctx context.Context, rec model.SolveRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var resp any
	if len(rec.Response) > 0 {
		resp = string(rec.Response)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO solves (id, solver, status, total, vehicles, jobs, partitions, elapsed_ms, response, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.Solver, rec.Status, rec.Total, rec.Vehicles, rec.Jobs, int64(rec.Partitions), rec.ElapsedMs, resp, rec.CreatedAt)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (p *Postgres) GetSolve(ctx context.Context, id string) (model.SolveRecord, error) {
	var rec model.SolveRecord
	var resp sql.NullString
	var partitions int64
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, solver, status, total, vehicles, jobs, partitions, elapsed_ms, response, created_at FROM solves WHERE id=$1`, id).
		Scan(&rec.ID, &rec.Solver, &rec.Status, &rec.Total, &rec.Vehicles, &rec.Jobs, &partitions, &rec.ElapsedMs, &resp, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SolveRecord{}, ErrNotFound
	}
	if err != nil {
		return model.SolveRecord{}, err
	}
	rec.Partitions = uint64(partitions)
	if resp.Valid {
		rec.Response = json.RawMessage(resp.String)
	}
	return rec, nil
}

func (p *Postgres) ListSolves(ctx context.Context, cursor string, limit int) ([]model.SolveRecord, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, solver, status, total, vehicles, jobs, partitions, elapsed_ms, created_at FROM solves`
	args := []any{}
	if cursor != "" {
		q += ` WHERE created_at < (SELECT created_at FROM solves WHERE id=$1)`
		args = append(args, cursor)
	}
	q += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit+1)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()
	items := []model.SolveRecord{}
	for rows.Next() {
		var rec model.SolveRecord
		var partitions int64
		if err := rows.Scan(&rec.ID, &rec.Solver, &rec.Status, &rec.Total, &rec.Vehicles, &rec.Jobs, &partitions, &rec.ElapsedMs, &rec.CreatedAt); err != nil {
			return nil, "", err
		}
		rec.Partitions = uint64(partitions)
		items = append(items, rec)
	}
	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = items[limit-1].ID
	}
	return items, next, rows.Err()
}

func (p *Postgres) SolveStats(ctx context.Context) (map[string]any, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT solver, status, count(*), coalesce(avg(elapsed_ms),0) FROM solves GROUP BY solver, status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	byStatus := map[string]int{}
	bySolver := map[string]int{}
	total := 0
	var weighted float64
	for rows.Next() {
		var solver, status string
		var count int
		var avg float64
		if err := rows.Scan(&solver, &status, &count, &avg); err != nil {
			return nil, err
		}
		byStatus[status] += count
		bySolver[solver] += count
		total += count
		weighted += avg * float64(count)
	}
	stats := map[string]any{"solves": total, "byStatus": byStatus, "bySolver": bySolver}
	if total > 0 {
		stats["avgElapsedMs"] = int64(weighted / float64(total))
	}
	return stats, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		s.ID, s.URL, joinEvents(s.Events), s.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, events, secret FROM subscriptions`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var events string
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		s.Events = splitEvents(events)
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, url, events FROM subscriptions`
	args := []any{}
	if cursor != "" {
		q += ` WHERE created_at > (SELECT created_at FROM subscriptions WHERE id=$1)`
		args = append(args, cursor)
	}
	q += ` ORDER BY created_at ASC LIMIT ` + strconv.Itoa(limit+1)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()
	items := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events string
		if err := rows.Scan(&s.ID, &s.URL, &events); err != nil {
			return nil, "", err
		}
		s.Events = splitEvents(events)
		items = append(items, s)
	}
	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = items[limit-1].ID
	}
	return items, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, subscriptionID, eventType, url, secret, string(payload))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, subscription_id::text, event_type, url, secret, payload::text, attempts
		 FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY created_at ASC LIMIT `+strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []WebhookDelivery
	for rows.Next() {
		var d WebhookDelivery
		var payload string
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &payload, &d.Attempts); err != nil {
			return nil, err
		}
		d.Payload = []byte(payload)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4, delivered_at=now() WHERE id=$1`,
			id, lastError, responseCode, latencyMs)
		return err
	}
	var next any
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET attempts=attempts+1, next_attempt_at=coalesce($2, next_attempt_at), last_error=$3, response_code=$4, latency_ms=$5 WHERE id=$1`,
		id, next, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, event_type, status, attempts, url, last_error, response_code, latency_ms, created_at FROM webhook_deliveries`
	args := []any{}
	where := ""
	if status != "" {
		where = ` WHERE status=$1`
		args = append(args, status)
	}
	if cursor != "" {
		if where == "" {
			where = ` WHERE created_at < (SELECT created_at FROM webhook_deliveries WHERE id=$1)`
		} else {
			where += ` AND created_at < (SELECT created_at FROM webhook_deliveries WHERE id=$2)`
		}
		args = append(args, cursor)
	}
	q += where + ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit+1)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()
	items := []map[string]any{}
	for rows.Next() {
		var id, eventType, st, url, lastErr string
		var attempts, code, latency int
		var createdAt time.Time
		if err := rows.Scan(&id, &eventType, &st, &attempts, &url, &lastErr, &code, &latency, &createdAt); err != nil {
			return nil, "", err
		}
		items = append(items, map[string]any{
			"id": id, "eventType": eventType, "status": st, "attempts": attempts,
			"url": url, "lastError": lastErr, "responseCode": code, "latencyMs": latency, "createdAt": createdAt,
		})
	}
	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = items[limit-1]["id"].(string)
	}
	return items, next, rows.Err()
}

func joinEvents(events []string) string { return strings.Join(events, ",") }

func splitEvents(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

