package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasflow-erp/gasflow/internal/shared"
)

type memoryRepo struct {
	products    map[int64]Product
	consumers   map[int64]Consumer
	connections map[int64]Connection
	staff       map[int64]Staff
	pairSeen    map[[2]int64]bool
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:    map[int64]Product{},
		consumers:   map[int64]Consumer{},
		connections: map[int64]Connection{},
		staff:       map[int64]Staff{},
		pairSeen:    map[[2]int64]bool{},
	}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) CreateProduct(_ context.Context, p Product) (Product, error) {
	p.ID = m.id()
	p.Active = true
	m.products[p.ID] = p
	return p, nil
}

func (m *memoryRepo) UpdateProduct(_ context.Context, id int64, req UpdateProductRequest) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.Name = req.Name
	p.CapacityKg = req.CapacityKg
	p.Active = req.Active
	m.products[id] = p
	return p, nil
}

func (m *memoryRepo) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) ListProducts(_ context.Context, _ shared.Pagination) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) CreateConsumer(_ context.Context, c Consumer) (Consumer, error) {
	c.ID = m.id()
	m.consumers[c.ID] = c
	return c, nil
}

func (m *memoryRepo) GetConsumer(_ context.Context, id int64) (Consumer, error) {
	c, ok := m.consumers[id]
	if !ok {
		return Consumer{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) ListConsumers(_ context.Context, _ shared.Pagination) ([]Consumer, error) {
	var out []Consumer
	for _, c := range m.consumers {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) CreateConnection(_ context.Context, c Connection) (Connection, error) {
	key := [2]int64{c.ConsumerID, c.ProductID}
	if m.pairSeen[key] {
		return Connection{}, ErrDuplicate
	}
	m.pairSeen[key] = true
	c.ID = m.id()
	m.connections[c.ID] = c
	return c, nil
}

func (m *memoryRepo) GetConnection(_ context.Context, id int64) (Connection, error) {
	c, ok := m.connections[id]
	if !ok {
		return Connection{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) ListConnections(_ context.Context, consumerID int64) ([]Connection, error) {
	var out []Connection
	for _, c := range m.connections {
		if c.ConsumerID == consumerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) UpdateConnectionStatus(_ context.Context, id int64, status ConnectionStatus) (Connection, error) {
	c, ok := m.connections[id]
	if !ok {
		return Connection{}, ErrNotFound
	}
	c.Status = status
	m.connections[id] = c
	return c, nil
}

func (m *memoryRepo) CreateStaff(_ context.Context, s Staff) (Staff, error) {
	s.ID = m.id()
	s.Active = true
	m.staff[s.ID] = s
	return s, nil
}

func (m *memoryRepo) ListStaff(_ context.Context, _ shared.Pagination) ([]Staff, error) {
	var out []Staff
	for _, s := range m.staff {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) ProductNames(_ context.Context) (map[int64]string, error) {
	names := map[int64]string{}
	for id, p := range m.products {
		names[id] = p.Name
	}
	return names, nil
}

func seed(t *testing.T, svc *Service) (Consumer, Product) {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU: "CYL-14.2", Name: "14.2kg Domestic", CapacityKg: 14.2,
	})
	require.NoError(t, err)
	consumer, err := svc.CreateConsumer(context.Background(), CreateConsumerRequest{
		ConsumerNo: "C-1001", Name: "A Kumar",
	})
	require.NoError(t, err)
	return consumer, product
}

func TestCreateConnectionChecksBothSides(t *testing.T) {
	svc := NewService(newMemoryRepo())
	consumer, product := seed(t, svc)

	conn, err := svc.CreateConnection(context.Background(), CreateConnectionRequest{
		ConsumerID: consumer.ID, ProductID: product.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, ConnectionActive, conn.Status)

	_, err = svc.CreateConnection(context.Background(), CreateConnectionRequest{
		ConsumerID: consumer.ID, ProductID: 999,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateConnection(context.Background(), CreateConnectionRequest{
		ConsumerID: consumer.ID, ProductID: product.ID,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestConnectionLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo())
	consumer, product := seed(t, svc)
	conn, err := svc.CreateConnection(context.Background(), CreateConnectionRequest{
		ConsumerID: consumer.ID, ProductID: product.ID,
	})
	require.NoError(t, err)

	conn, err = svc.UpdateConnectionStatus(context.Background(), conn.ID, ConnectionSuspended)
	require.NoError(t, err)
	assert.Equal(t, ConnectionSuspended, conn.Status)

	conn, err = svc.UpdateConnectionStatus(context.Background(), conn.ID, ConnectionActive)
	require.NoError(t, err)
	assert.Equal(t, ConnectionActive, conn.Status)

	conn, err = svc.UpdateConnectionStatus(context.Background(), conn.ID, ConnectionTerminated)
	require.NoError(t, err)
	assert.Equal(t, ConnectionTerminated, conn.Status)

	_, err = svc.UpdateConnectionStatus(context.Background(), conn.ID, ConnectionActive)
	assert.ErrorIs(t, err, ErrBadTransition)
}
