package restaurants

type Repo interface {
	Upsert(restaurant *Restaurant) error
	Delete(restaurantID string) error
	Get(restaurantID string) (*Restaurant, error)
	GetBySubdomain(subdomain string) (*Restaurant, error)
	List(offset, limit int) ([]*Restaurant, error)
}
