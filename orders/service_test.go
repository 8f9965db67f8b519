package orders_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/orders"
	orderrepofakes "github.com/jrsteele09/masapp-server/orders/repofakes"
	"github.com/jrsteele09/masapp-server/qrsession"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService() (*orders.Service, *qrsession.Manager, *clock) {
	c := &clock{now: time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)}
	sessions := qrsession.New(qrsession.NewInMemoryRepo(), qrsession.WithNowFunc(c.Now))
	svc := orders.NewService(orderrepofakes.NewFakeOrderRepo(), sessions, orders.WithNowFunc(c.Now))
	return svc, sessions, c
}

var kebab = []orders.Item{{ProductID: "p-1", Name: "Adana Kebab", Quantity: 2}}

func TestPlaceConsumesSession(t *testing.T) {
	svc, sessions, _ := newService()

	s, err := sessions.Create("r-1", 5)
	require.NoError(t, err)

	order, err := svc.Place("r-1", s.Token, kebab)
	require.NoError(t, err)
	require.Equal(t, orders.StatusPending, order.Status)
	require.Equal(t, 5, order.TableNumber)
	require.NotEmpty(t, order.ID)

	require.Equal(t, qrsession.ReasonTokenUsed, sessions.Validate(s.Token).Reason)

	_, err = svc.Place("r-1", s.Token, kebab)
	var serr *qrsession.InvalidSessionError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, qrsession.ReasonTokenUsed, serr.Reason)
}

func TestPlaceRejectsExpiredOrForeignSession(t *testing.T) {
	svc, sessions, c := newService()

	s, err := sessions.Create("r-1", 5)
	require.NoError(t, err)

	_, err = svc.Place("r-2", s.Token, kebab)
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	c.now = c.now.Add(31 * time.Minute)
	_, err = svc.Place("r-1", s.Token, kebab)
	var serr *qrsession.InvalidSessionError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, qrsession.ReasonTokenExpired, serr.Reason)
}

func TestPlaceValidatesItemsBeforeSpendingSession(t *testing.T) {
	svc, sessions, _ := newService()

	s, err := sessions.Create("r-1", 5)
	require.NoError(t, err)

	_, err = svc.Place("r-1", s.Token, nil)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Place("r-1", s.Token, []orders.Item{{ProductID: "", Quantity: 0}})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "items[0].productId")
	require.Contains(t, verr.Fields, "items[0].quantity")

	require.True(t, sessions.Validate(s.Token).Valid)
}

// failingInsertRepo refuses every new order.
type failingInsertRepo struct{ orders.Repo }

func (failingInsertRepo) Insert(*orders.Order) error {
	return errors.New("database unavailable")
}

func TestPlaceReleasesSessionWhenOrderNotStored(t *testing.T) {
	c := &clock{now: time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)}
	sessions := qrsession.New(qrsession.NewInMemoryRepo(), qrsession.WithNowFunc(c.Now))
	repo := orderrepofakes.NewFakeOrderRepo()
	s, err := sessions.Create("r-1", 5)
	require.NoError(t, err)

	failing := orders.NewService(failingInsertRepo{Repo: repo}, sessions, orders.WithNowFunc(c.Now))
	_, err = failing.Place("r-1", s.Token, kebab)
	require.Error(t, err)
	require.True(t, sessions.Validate(s.Token).Valid)

	order, err := orders.NewService(repo, sessions, orders.WithNowFunc(c.Now)).Place("r-1", s.Token, kebab)
	require.NoError(t, err)
	require.Equal(t, 5, order.TableNumber)
}

func TestStatusWorkflow(t *testing.T) {
	svc, sessions, _ := newService()

	s, err := sessions.Create("r-1", 1)
	require.NoError(t, err)
	order, err := svc.Place("r-1", s.Token, kebab)
	require.NoError(t, err)

	steps := []struct {
		role   users.Role
		status orders.Status
	}{
		{users.RoleKitchen, orders.StatusPreparing},
		{users.RoleKitchen, orders.StatusReady},
		{users.RoleWaiter, orders.StatusServed},
		{users.RoleCashier, orders.StatusPaid},
	}
	for _, step := range steps {
		order, err = svc.UpdateStatus(order.ID, "r-1", step.role, step.status)
		require.NoError(t, err, step.status)
		require.Equal(t, step.status, order.Status)
	}

	_, err = svc.UpdateStatus(order.ID, "r-1", users.RoleRestaurantAdmin, orders.StatusCancelled)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateStatusPermissions(t *testing.T) {
	svc, sessions, _ := newService()

	s, err := sessions.Create("r-1", 1)
	require.NoError(t, err)
	order, err := svc.Place("r-1", s.Token, kebab)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(order.ID, "r-1", users.RoleCashier, orders.StatusPreparing)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.UpdateStatus(order.ID, "r-2", users.RoleKitchen, orders.StatusPreparing)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.UpdateStatus(order.ID, "r-1", users.RoleKitchen, orders.StatusReady)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.UpdateStatus(order.ID, "r-1", users.RoleKitchen, "burnt")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	updated, err := svc.UpdateStatus(order.ID, "r-1", users.RoleRestaurantAdmin, orders.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, orders.StatusCancelled, updated.Status)
}

func TestList(t *testing.T) {
	svc, sessions, c := newService()

	for table := 1; table <= 3; table++ {
		s, err := sessions.Create("r-1", table)
		require.NoError(t, err)
		_, err = svc.Place("r-1", s.Token, kebab)
		require.NoError(t, err)
		c.now = c.now.Add(time.Minute)
	}
	s, err := sessions.Create("r-2", 1)
	require.NoError(t, err)
	other, err := svc.Place("r-2", s.Token, kebab)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(other.ID, "r-2", users.RoleKitchen, orders.StatusPreparing)
	require.NoError(t, err)

	list, err := svc.List("r-1", "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, 1, list[0].TableNumber)
	require.Equal(t, 3, list[2].TableNumber)

	list, err = svc.List("r-2", orders.StatusPreparing)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.List("r-1", "nope")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTransitionTable(t *testing.T) {
	require.True(t, orders.CanTransition(orders.StatusPending, orders.StatusPreparing))
	require.False(t, orders.CanTransition(orders.StatusPending, orders.StatusPaid))
	require.False(t, orders.CanTransition(orders.StatusPaid, orders.StatusPending))
	require.False(t, orders.CanTransition("unknown", orders.StatusPending))

	require.True(t, orders.RoleMaySet(users.RoleWaiter, orders.StatusServed))
	require.False(t, orders.RoleMaySet(users.RoleWaiter, orders.StatusPaid))
	require.True(t, orders.RoleMaySet(users.RoleRestaurantAdmin, orders.StatusPaid))
}
