package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/internal/repository"
)

// memoryRepo is an in-memory ProductRepository. AdjustStock holds the mutex
// across read, compute and write.
type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]domain.Product
	calls    int
	err      error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]domain.Product)}
}

func (r *memoryRepo) seed(p domain.Product) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p.ID
}

func (r *memoryRepo) touch() error {
	r.calls++
	return r.err
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.touch(); err != nil {
		return nil, err
	}

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r *memoryRepo) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.touch(); err != nil {
		return nil, err
	}

	for _, p := range r.products {
		if p.SKU != nil && *p.SKU == sku {
			return &p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (r *memoryRepo) ListActive(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.touch(); err != nil {
		return nil, err
	}

	list := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if p.Active {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *memoryRepo) Create(_ context.Context, product *domain.Product) (*domain.CreatedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.touch(); err != nil {
		return nil, err
	}

	if product.SKU != nil {
		for _, p := range r.products {
			if p.SKU != nil && *p.SKU == *product.SKU {
				return nil, repository.ErrDuplicateSKU
			}
		}
	}

	r.nextID++
	p := *product
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.products[p.ID] = p

	return &domain.CreatedProduct{ID: p.ID, Name: p.Name, SKU: p.SKU}, nil
}

func (r *memoryRepo) Update(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.touch(); err != nil {
		return nil, err
	}

	stored, ok := r.products[product.ID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}

	p := *product
	if p.SKU == nil {
		p.SKU = stored.SKU
	}
	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = time.Now()
	r.products[p.ID] = p

	return &p, nil
}

func (r *memoryRepo) AdjustStock(_ context.Context, id int64, compute repository.StockFunc) (*domain.StockChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.touch(); err != nil {
		return nil, err
	}

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}

	current := p
	newStock, err := compute(&current)
	if err != nil {
		return nil, &repository.RejectedError{Err: err}
	}

	previous := p.Stock
	p.Stock = newStock
	p.UpdatedAt = time.Now()
	r.products[id] = p

	return &domain.StockChange{ID: id, Name: p.Name, PreviousStock: previous, Stock: newStock, UpdatedAt: p.UpdatedAt}, nil
}

func (r *memoryRepo) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.touch(); err != nil {
		return err
	}

	if _, ok := r.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveAdjustment(direction, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.outcomes = append(o.outcomes, direction+"/"+outcome)
}
