package orders

type ListFilter struct {
	RestaurantID string
	Status       Status // empty matches every status
}

type Repo interface {
	Insert(order *Order) error
	Get(id string) (*Order, error)
	Update(order *Order) error
	// List returns matching orders, oldest first.
	List(filter ListFilter) ([]*Order, error)
}
