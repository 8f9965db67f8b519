package orderrepofakes

import (
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/orders"
	"github.com/pkg/errors"
)

type FakeOrderRepo struct {
	orders map[string]*orders.Order
	mu     sync.RWMutex
}

var _ orders.Repo = (*FakeOrderRepo)(nil)

func NewFakeOrderRepo() *FakeOrderRepo {
	return &FakeOrderRepo{
		orders: make(map[string]*orders.Order),
	}
}

func (r *FakeOrderRepo) Insert(order *orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; ok {
		return errors.Wrapf(apperrors.ErrConflict, "order %s already exists", order.ID)
	}
	r.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *FakeOrderRepo) Get(id string) (*orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "order %s", id)
	}
	return copyOrder(order), nil
}

func (r *FakeOrderRepo) Update(order *orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return errors.Wrapf(apperrors.ErrNotFound, "order %s", order.ID)
	}
	r.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *FakeOrderRepo) List(filter orders.ListFilter) ([]*orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*orders.Order, 0)
	for _, o := range r.orders {
		if filter.RestaurantID != "" && o.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		list = append(list, copyOrder(o))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func copyOrder(o *orders.Order) *orders.Order {
	c := *o
	c.Items = append([]orders.Item(nil), o.Items...)
	return &c
}
