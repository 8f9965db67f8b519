package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/qrsession"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxItemQuantity = 99

type Service struct {
	repo     Repo
	sessions *qrsession.Manager
	nowFunc  func() time.Time
}

type ServiceOption func(*Service)

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(repo Repo, sessions *qrsession.Manager, options ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		sessions: sessions,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	return s
}

// Place records an order for the table behind qrToken. The QR session is spent by the order,
// so a photographed QR code cannot be reused once the table has ordered.
func (s *Service) Place(restaurantID, qrToken string, items []Item) (*Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	session, err := s.sessions.Consume(qrToken, restaurantID)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	order := &Order{
		ID:           uuid.New().String(),
		RestaurantID: restaurantID,
		TableNumber:  session.TableNumber,
		Items:        normaliseItems(items),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(order); err != nil {
		if releaseErr := s.sessions.Release(qrToken); releaseErr != nil {
			log.Err(releaseErr).Str("restaurant", restaurantID).Int("table", session.TableNumber).Msg("failed to release qr session after failed order")
		}
		return nil, errors.Wrap(err, "Service.Place Insert")
	}

	log.Info().Str("restaurant", restaurantID).Int("table", order.TableNumber).Str("order", order.ID).Msg("order placed")
	return order, nil
}

func (s *Service) List(restaurantID string, status Status) ([]*Order, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.NewValidationError().Add("status", "unknown status")
	}
	return s.repo.List(ListFilter{RestaurantID: restaurantID, Status: status})
}

// UpdateStatus moves an order on. Orders of other restaurants are reported as not found.
func (s *Service) UpdateStatus(orderID, restaurantID string, role users.Role, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError().Add("status", "unknown status")
	}

	order, err := s.repo.Get(orderID)
	if err != nil {
		return nil, err
	}
	if role != users.RoleSuperAdmin && order.RestaurantID != restaurantID {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "order %s", orderID)
	}
	if !RoleMaySet(role, status) {
		return nil, errors.Wrapf(apperrors.ErrForbidden, "role %s may not set status %s", role, status)
	}
	if !CanTransition(order.Status, status) {
		return nil, errors.Wrapf(apperrors.ErrConflict, "cannot move order from %s to %s", order.Status, status)
	}

	order.Status = status
	order.UpdatedAt = s.nowFunc()
	if err := s.repo.Update(order); err != nil {
		return nil, errors.Wrap(err, "Service.UpdateStatus Update")
	}
	return order, nil
}

func validateItems(items []Item) error {
	verr := apperrors.NewValidationError()
	if len(items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			verr.Add(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		if item.Quantity < 1 || item.Quantity > maxItemQuantity {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must be between 1 and %d", maxItemQuantity))
		}
	}
	return verr.OrNil()
}

func normaliseItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = Item{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			Note:      strings.TrimSpace(item.Note),
		}
	}
	return out
}
