package masterdata

import (
	"context"
	"fmt"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

// RepositoryPort is the storage contract for master data.
type RepositoryPort interface {
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, page shared.Pagination) ([]Product, error)
	CreateConsumer(ctx context.Context, c Consumer) (Consumer, error)
	GetConsumer(ctx context.Context, id int64) (Consumer, error)
	ListConsumers(ctx context.Context, page shared.Pagination) ([]Consumer, error)
	CreateConnection(ctx context.Context, c Connection) (Connection, error)
	GetConnection(ctx context.Context, id int64) (Connection, error)
	ListConnections(ctx context.Context, consumerID int64) ([]Connection, error)
	UpdateConnectionStatus(ctx context.Context, id int64, status ConnectionStatus) (Connection, error)
	CreateStaff(ctx context.Context, s Staff) (Staff, error)
	ListStaff(ctx context.Context, page shared.Pagination) ([]Staff, error)
	ProductNames(ctx context.Context) (map[int64]string, error)
}

// Service exposes master data operations.
type Service struct {
	repo RepositoryPort
}

// NewService creates a master data Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateProduct registers a product.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (Product, error) {
	return s.repo.CreateProduct(ctx, Product{
		SKU:        req.SKU,
		Name:       req.Name,
		CapacityKg: req.CapacityKg,
	})
}

// UpdateProduct updates mutable product fields.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (Product, error) {
	return s.repo.UpdateProduct(ctx, id, req)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts returns a page of products.
func (s *Service) ListProducts(ctx context.Context, page shared.Pagination) ([]Product, error) {
	return s.repo.ListProducts(ctx, page)
}

// CreateConsumer registers a consumer.
func (s *Service) CreateConsumer(ctx context.Context, req CreateConsumerRequest) (Consumer, error) {
	return s.repo.CreateConsumer(ctx, Consumer{
		ConsumerNo: req.ConsumerNo,
		Name:       req.Name,
		Address:    req.Address,
		Phone:      req.Phone,
	})
}

// GetConsumer fetches one consumer.
func (s *Service) GetConsumer(ctx context.Context, id int64) (Consumer, error) {
	return s.repo.GetConsumer(ctx, id)
}

// ListConsumers returns a page of consumers.
func (s *Service) ListConsumers(ctx context.Context, page shared.Pagination) ([]Consumer, error) {
	return s.repo.ListConsumers(ctx, page)
}

// CreateConnection subscribes a consumer to a product. Both sides must
// exist; the unique consumer/product pair rejects duplicates.
func (s *Service) CreateConnection(ctx context.Context, req CreateConnectionRequest) (Connection, error) {
	if _, err := s.repo.GetConsumer(ctx, req.ConsumerID); err != nil {
		return Connection{}, fmt.Errorf("consumer %d: %w", req.ConsumerID, err)
	}
	if _, err := s.repo.GetProduct(ctx, req.ProductID); err != nil {
		return Connection{}, fmt.Errorf("product %d: %w", req.ProductID, err)
	}
	return s.repo.CreateConnection(ctx, Connection{
		ConsumerID: req.ConsumerID,
		ProductID:  req.ProductID,
		Status:     ConnectionActive,
	})
}

// ListConnections returns a consumer's connections.
func (s *Service) ListConnections(ctx context.Context, consumerID int64) ([]Connection, error) {
	return s.repo.ListConnections(ctx, consumerID)
}

// UpdateConnectionStatus moves a connection through its lifecycle.
func (s *Service) UpdateConnectionStatus(ctx context.Context, id int64, status ConnectionStatus) (Connection, error) {
	conn, err := s.repo.GetConnection(ctx, id)
	if err != nil {
		return Connection{}, err
	}
	if !conn.Status.CanTransitionTo(status) {
		return Connection{}, fmt.Errorf("connection %d: %s to %s: %w", id, conn.Status, status, ErrBadTransition)
	}
	return s.repo.UpdateConnectionStatus(ctx, id, status)
}

// CreateStaff registers a delivery person.
func (s *Service) CreateStaff(ctx context.Context, req CreateStaffRequest) (Staff, error) {
	return s.repo.CreateStaff(ctx, Staff{
		Code:  req.Code,
		Name:  req.Name,
		Phone: req.Phone,
	})
}

// ListStaff returns a page of delivery staff.
func (s *Service) ListStaff(ctx context.Context, page shared.Pagination) ([]Staff, error) {
	return s.repo.ListStaff(ctx, page)
}

// ProductNames returns id to display name for all products.
func (s *Service) ProductNames(ctx context.Context) (map[int64]string, error) {
	return s.repo.ProductNames(ctx)
}
