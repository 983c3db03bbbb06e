package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

// --- Mock implementations ---

type memCarts struct {
	mu    sync.Mutex
	lines map[string][]Line
	err   error
}

func newMemCarts() *memCarts { return &memCarts{lines: make(map[string][]Line)} }

func (m *memCarts) Get(_ context.Context, userID string) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &Cart{UserID: userID, Lines: append([]Line(nil), m.lines[userID]...)}, nil
}

func (m *memCarts) Put(_ context.Context, userID string, line Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lines[userID] {
		if l.Key() == line.Key() {
			m.lines[userID][i] = line
			return nil
		}
	}
	m.lines[userID] = append(m.lines[userID], line)
	return nil
}

func (m *memCarts) Add(_ context.Context, userID string, line Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lines[userID] {
		if l.Key() == line.Key() {
			m.lines[userID][i].Quantity += line.Quantity
			return nil
		}
	}
	m.lines[userID] = append(m.lines[userID], line)
	return nil
}

func (m *memCarts) Replace(_ context.Context, userID string, lines []Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[userID] = append([]Line(nil), lines...)
	return nil
}

func (m *memCarts) Delete(_ context.Context, userID string, k Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.lines[userID] {
		if l.Key() == k {
			m.lines[userID] = append(m.lines[userID][:i], m.lines[userID][i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func newProducts(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

const user = "u1"

func newTestService(products ...product.Product) (*Service, *memCarts) {
	carts := newMemCarts()
	return NewService(carts, newProducts(products...)), carts
}

// --- Tests ---

func TestAdd_MergesSameSize(t *testing.T) {
	svc, _ := newTestService(product.Product{ID: "p1", Stock: 10})
	ctx := context.Background()

	_, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeM, Quantity: 2})
	require.NoError(t, err)
	c, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeM, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestAdd_ConcurrentAddsAllCount(t *testing.T) {
	svc, carts := newTestService(product.Product{ID: "p1", Stock: 100})
	const adders = 20

	var wg sync.WaitGroup
	for range adders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(context.Background(), user, AddRequest{ProductID: "p1", Size: SizeM, Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, carts.lines[user], 1)
	assert.Equal(t, adders, carts.lines[user][0].Quantity)
}

func TestAdd_DifferentSizesAreSeparateLines(t *testing.T) {
	svc, _ := newTestService(product.Product{ID: "p1", Stock: 10})
	ctx := context.Background()

	_, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeS, Quantity: 1})
	require.NoError(t, err)
	c, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeXL, Quantity: 1})
	require.NoError(t, err)

	assert.Len(t, c.Lines, 2)
	assert.Equal(t, 2, c.QuantityOf("p1"))
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     AddRequest
		wantErr error
	}{
		{name: "zero quantity", req: AddRequest{ProductID: "p1", Size: SizeM, Quantity: 0}, wantErr: ErrInvalidQuantity},
		{name: "negative quantity", req: AddRequest{ProductID: "p1", Size: SizeM, Quantity: -2}, wantErr: ErrInvalidQuantity},
		{name: "unknown size", req: AddRequest{ProductID: "p1", Size: "XXL", Quantity: 1}, wantErr: ErrInvalidSize},
		{name: "unknown product", req: AddRequest{ProductID: "nope", Size: SizeM, Quantity: 1}, wantErr: product.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, carts := newTestService(product.Product{ID: "p1", Stock: 10})

			_, err := svc.Add(context.Background(), user, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, carts.lines[user])
		})
	}
}

func TestAdd_MergedQuantityCappedByStock(t *testing.T) {
	svc, carts := newTestService(product.Product{ID: "p1", Stock: 4})
	ctx := context.Background()

	_, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeM, Quantity: 3})
	require.NoError(t, err)

	_, err = svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeL, Quantity: 2})
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 4, insufficient.Available)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Len(t, carts.lines[user], 1)
}

func TestAdd_BuyNowReplacesCart(t *testing.T) {
	svc, _ := newTestService(
		product.Product{ID: "p1", Stock: 10},
		product.Product{ID: "p2", Stock: 10},
	)
	ctx := context.Background()

	_, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeM, Quantity: 2})
	require.NoError(t, err)
	c, err := svc.Add(ctx, user, AddRequest{ProductID: "p2", Size: SizeS, Quantity: 1, BuyNow: true})
	require.NoError(t, err)

	assert.Equal(t, []Line{{ProductID: "p2", Size: SizeS, Quantity: 1}}, c.Lines)
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(product.Product{ID: "p1", Stock: 5})
	ctx := context.Background()
	_, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeM, Quantity: 2})
	require.NoError(t, err)

	k := Key{ProductID: "p1", Size: SizeM}

	c, err := svc.Update(ctx, user, k, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Lines[0].Quantity)

	_, err = svc.Update(ctx, user, k, 6)
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	_, err = svc.Update(ctx, user, k, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Update(ctx, user, Key{ProductID: "p1", Size: SizeL}, 1)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemove(t *testing.T) {
	svc, _ := newTestService(product.Product{ID: "p1", Stock: 5})
	ctx := context.Background()
	_, err := svc.Add(ctx, user, AddRequest{ProductID: "p1", Size: SizeM, Quantity: 1})
	require.NoError(t, err)

	c, err := svc.Remove(ctx, user, Key{ProductID: "p1", Size: SizeM})
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = svc.Remove(ctx, user, Key{ProductID: "p1", Size: SizeM})
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestFill_ReportsPerLineFailures(t *testing.T) {
	svc, _ := newTestService(
		product.Product{ID: "p1", Stock: 5},
		product.Product{ID: "p2", Stock: 1},
	)

	added, failed, err := svc.Fill(context.Background(), user, []Line{
		{ProductID: "p1", Size: SizeM, Quantity: 2},
		{ProductID: "p2", Size: SizeM, Quantity: 3},
		{ProductID: "gone", Size: SizeM, Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []Line{{ProductID: "p1", Size: SizeM, Quantity: 2}}, added)
	require.Len(t, failed, 2)
	var insufficient *stock.InsufficientStockError
	assert.ErrorAs(t, failed[Key{ProductID: "p2", Size: SizeM}], &insufficient)
	assert.ErrorIs(t, failed[Key{ProductID: "gone", Size: SizeM}], product.ErrNotFound)
}

func TestView_StorageError(t *testing.T) {
	svc, carts := newTestService()
	carts.err = errors.New("db down")

	_, err := svc.View(context.Background(), user)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get cart")
}
