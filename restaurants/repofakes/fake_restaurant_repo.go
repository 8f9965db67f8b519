package restaurantrepofakes

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/internal/utils"
	"github.com/jrsteele09/masapp-server/restaurants"
)

var _ restaurants.Repo = (*FakeRestaurantRepo)(nil)

type FakeRestaurantRepo struct {
	restaurants map[string]*restaurants.Restaurant
	subdomains  map[string]string // subdomain to restaurant id
	lock        sync.RWMutex
}

func NewFakeRestaurantRepo() restaurants.Repo {
	return &FakeRestaurantRepo{
		restaurants: make(map[string]*restaurants.Restaurant),
		subdomains:  make(map[string]string),
	}
}

func (rr *FakeRestaurantRepo) Upsert(r *restaurants.Restaurant) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()

	r.Subdomain = strings.ToLower(r.Subdomain)
	if !restaurants.ValidSubdomain(r.Subdomain) {
		return apperrors.NewValidationError().Add("subdomain", "must be a lower case DNS label")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if existingID, ok := rr.subdomains[r.Subdomain]; ok && existingID != r.ID {
		return apperrors.Wrapf(apperrors.ErrConflict, "subdomain %s taken", r.Subdomain)
	}
	if previous, ok := rr.restaurants[r.ID]; ok {
		delete(rr.subdomains, previous.Subdomain)
	}

	stored := *r
	rr.restaurants[r.ID] = &stored
	rr.subdomains[r.Subdomain] = r.ID
	return nil
}

func (rr *FakeRestaurantRepo) Delete(restaurantID string) error {
	rr.lock.Lock()
	defer rr.lock.Unlock()
	r, ok := rr.restaurants[restaurantID]
	if !ok {
		return nil
	}
	delete(rr.subdomains, r.Subdomain)
	delete(rr.restaurants, restaurantID)
	return nil
}

func (rr *FakeRestaurantRepo) Get(restaurantID string) (*restaurants.Restaurant, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()
	r, ok := rr.restaurants[restaurantID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (rr *FakeRestaurantRepo) GetBySubdomain(subdomain string) (*restaurants.Restaurant, error) {
	rr.lock.RLock()
	id, ok := rr.subdomains[strings.ToLower(subdomain)]
	rr.lock.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return rr.Get(id)
}

func (rr *FakeRestaurantRepo) List(offset, limit int) ([]*restaurants.Restaurant, error) {
	rr.lock.RLock()
	defer rr.lock.RUnlock()

	list := make([]*restaurants.Restaurant, 0, len(rr.restaurants))
	for _, r := range rr.restaurants {
		c := *r
		list = append(list, &c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Subdomain < list[j].Subdomain
	})

	return utils.Paginate(list, offset, limit), nil
}
