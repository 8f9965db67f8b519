package fakeuserrepo

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/internal/utils"
	"github.com/jrsteele09/masapp-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

// Upsert stores a copy of user so callers cannot mutate repo state behind its back.
func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	email := utils.NormaliseEmail(user.Email)
	if existingID, ok := ur.emailIds[email]; ok && existingID != user.ID {
		return apperrors.Wrapf(apperrors.ErrConflict, "email %s already registered", email)
	}
	if previous, ok := ur.users[user.ID]; ok {
		delete(ur.emailIds, utils.NormaliseEmail(previous.Email))
	}

	stored := *user
	stored.BackupCodeHashes = append([]string(nil), user.BackupCodeHashes...)
	ur.users[user.ID] = &stored
	ur.emailIds[email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email = utils.NormaliseEmail(email)
	userID, ok := ur.emailIds[email]
	if !ok {
		return apperrors.ErrNotFound
	}
	delete(ur.emailIds, email)
	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[utils.NormaliseEmail(email)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return ur.copyOf(id), nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if _, ok := ur.users[id]; !ok {
		return nil, apperrors.ErrNotFound
	}
	return ur.copyOf(id), nil
}

func (ur *FakeUserRepo) Update(id string, fn func(user *users.User) error) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	previous, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u := ur.copyOf(id)
	if err := fn(u); err != nil {
		return nil, err
	}
	u.ID = id

	oldEmail := utils.NormaliseEmail(previous.Email)
	newEmail := utils.NormaliseEmail(u.Email)
	if newEmail != oldEmail {
		if _, taken := ur.emailIds[newEmail]; taken {
			return nil, apperrors.Wrapf(apperrors.ErrConflict, "email %s already registered", newEmail)
		}
		delete(ur.emailIds, oldEmail)
		ur.emailIds[newEmail] = id
	}

	ur.users[id] = u
	return ur.copyOf(id), nil
}

func (ur *FakeUserRepo) List(filter users.ListFilter, offset, limit int) (users.ListResponse, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	userList := make([]*users.User, 0)
	for id, v := range ur.users {
		if filter.Role != "" && v.Role != filter.Role {
			continue
		}
		if filter.RestaurantID != "" && v.RestaurantID != filter.RestaurantID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(v.Email), query) && !strings.Contains(strings.ToLower(v.Name), query) {
			continue
		}
		userList = append(userList, ur.copyOf(id))
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].Email < userList[j].Email
	})

	return users.ListResponse{
		Users:  utils.Paginate(userList, offset, limit),
		Total:  len(userList),
		Offset: offset,
		Limit:  limit,
	}, nil
}

func (ur *FakeUserRepo) SetBlocked(email string, blocked bool) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.emailIds[utils.NormaliseEmail(email)]
	if !ok {
		return apperrors.ErrNotFound
	}
	ur.users[id].Blocked = blocked
	return nil
}

func (ur *FakeUserRepo) copyOf(id string) *users.User {
	u := *ur.users[id]
	u.BackupCodeHashes = append([]string(nil), u.BackupCodeHashes...)
	return &u
}
