package domain

import "context"

// ImageWrite selects how a cabin write treats the image list.
type ImageWrite int

const (
	ImagesKeep    ImageWrite = iota // leave stored images untouched
	ImagesUpsert                    // insert or overwrite by (local_id, file_name)
	ImagesReplace                   // delete all, then insert
)

type CabinStore interface {
	// Read paths
	ListCabins(ctx context.Context) ([]Cabin, error)
	GetCabin(ctx context.Context, id int64) (Cabin, error)
	FindMatch(ctx context.Context, lat, lon float64, name string) (*Cabin, error)

	// Write paths; row and images are written atomically
	InsertCabin(ctx context.Context, c Cabin) (int64, error)
	UpdateCabin(ctx context.Context, c Cabin, images ImageWrite) error
	DeleteCabin(ctx context.Context, id int64) error
	UpsertImported(ctx context.Context, cs []Cabin) error
}

type AdminStore interface {
	IsAdmin(ctx context.Context, username string) (bool, error)
	AddAdmin(ctx context.Context, username string) error
	RemoveAdmin(ctx context.Context, username string) error
}

type GeoEnricher interface {
	Lookup(ctx context.Context, lat, lon float64) (GeoInfo, error)
}

type ShelterSource interface {
	FetchAll(ctx context.Context) ([]Shelter, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
