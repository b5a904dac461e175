package model

import (
	"encoding/json"
	"time"
)

// Wire types for the solve API.

type VehicleIn struct {
	ID         string   `json:"id"`
	StartIndex int      `json:"start_index"`
	Capacity   *float64 `json:"capacity,omitempty"`
}

type JobIn struct {
	ID            string  `json:"id"`
	LocationIndex int     `json:"location_index"`
	Delivery      float64 `json:"delivery,omitempty"`
	Service       int64   `json:"service,omitempty"`
}

type SolveRequest struct {
	Vehicles     []VehicleIn `json:"vehicles"`
	Jobs         []JobIn     `json:"jobs"`
	Matrix       [][]int64   `json:"matrix"`
	Solver       string      `json:"solver,omitempty"`
	TimeBudgetMs int         `json:"time_budget_ms,omitempty"`
}

type RouteOut struct {
	Jobs             []string `json:"jobs"`
	DeliveryDuration int64    `json:"delivery_duration"`
}

type SolveResponse struct {
	TotalDeliveryDuration int64               `json:"total_delivery_duration"`
	Routes                map[string]RouteOut `json:"routes"`
}

// SolveRecord is one persisted solve run.
type SolveRecord struct {
	ID         string          `json:"id"`
	Solver     string          `json:"solver"`
	Status     string          `json:"status"` // ok, infeasible, cancelled, invalid, error
	Total      int64           `json:"total_delivery_duration"`
	Vehicles   int             `json:"vehicles"`
	Jobs       int             `json:"jobs"`
	Partitions uint64          `json:"partitions,omitempty"`
	ElapsedMs  int64           `json:"elapsed_ms"`
	CreatedAt  time.Time       `json:"created_at"`
	Response   json.RawMessage `json:"response,omitempty"`
}

// Webhook subscriptions.

type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
