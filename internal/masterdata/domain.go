package masterdata

import (
	"errors"
	"time"
)

// Product is a cylinder SKU, e.g. the 14.2kg domestic cylinder.
type Product struct {
	ID         int64     `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	CapacityKg float64   `json:"capacity_kg"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Consumer is a registered customer.
type Consumer struct {
	ID         int64     `json:"id"`
	ConsumerNo string    `json:"consumer_no"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConnectionStatus is the lifecycle of a consumer's subscription to a
// product.
type ConnectionStatus string

const (
	ConnectionActive     ConnectionStatus = "ACTIVE"
	ConnectionSuspended  ConnectionStatus = "SUSPENDED"
	ConnectionTerminated ConnectionStatus = "TERMINATED"
)

// IsValid checks if the status is valid.
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionActive, ConnectionSuspended, ConnectionTerminated:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the subscription lifecycle: ACTIVE and SUSPENDED
// swap freely, TERMINATED is terminal.
func (s ConnectionStatus) CanTransitionTo(to ConnectionStatus) bool {
	if s == ConnectionTerminated {
		return false
	}
	return to.IsValid() && to != s
}

// Connection links a consumer to a product they subscribe to.
type Connection struct {
	ID         int64            `json:"id"`
	ConsumerID int64            `json:"consumer_id"`
	ProductID  int64            `json:"product_id"`
	Status     ConnectionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Staff is a delivery person.
type Staff struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateProductRequest registers a product.
type CreateProductRequest struct {
	SKU        string  `json:"sku" validate:"required,max=64"`
	Name       string  `json:"name" validate:"required,max=200"`
	CapacityKg float64 `json:"capacity_kg" validate:"gte=0"`
}

// UpdateProductRequest updates mutable product fields.
type UpdateProductRequest struct {
	Name       string  `json:"name" validate:"required,max=200"`
	CapacityKg float64 `json:"capacity_kg" validate:"gte=0"`
	Active     bool    `json:"active"`
}

// CreateConsumerRequest registers a consumer.
type CreateConsumerRequest struct {
	ConsumerNo string `json:"consumer_no" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address" validate:"max=500"`
	Phone      string `json:"phone" validate:"max=32"`
}

// CreateConnectionRequest subscribes a consumer to a product.
type CreateConnectionRequest struct {
	ConsumerID int64 `json:"consumer_id" validate:"required,gt=0"`
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
}

// UpdateConnectionStatusRequest moves a connection through its lifecycle.
type UpdateConnectionStatusRequest struct {
	Status ConnectionStatus `json:"status" validate:"required,oneof=ACTIVE SUSPENDED TERMINATED"`
}

// CreateStaffRequest registers a delivery person.
type CreateStaffRequest struct {
	Code  string `json:"code" validate:"required,max=64"`
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"max=32"`
}

var (
	// ErrNotFound indicates an unknown master data id.
	ErrNotFound = errors.New("masterdata: not found")
	// ErrDuplicate indicates a unique key collision (SKU, consumer number,
	// staff code, or consumer/product pair).
	ErrDuplicate = errors.New("masterdata: duplicate")
	// ErrBadTransition indicates a connection status change the lifecycle
	// forbids.
	ErrBadTransition = errors.New("masterdata: status transition not allowed")
)
