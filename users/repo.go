package users

// ListFilter narrows a user listing. Empty fields match everything.
type ListFilter struct {
	Role         Role
	RestaurantID string
	Query        string // case-insensitive match on email or name
}

type ListResponse struct {
	Users  []*User `json:"users"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

type UserRepo interface {
	Upsert(user *User) error
	Delete(email string) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	// Update applies fn to the stored user under the repo's write lock and saves the result
	// unless fn returns an error, which Update then returns unchanged. It returns the saved user.
	Update(ID string, fn func(user *User) error) (*User, error)
	List(filter ListFilter, offset, limit int) (ListResponse, error)
	SetBlocked(email string, blocked bool) error
}
