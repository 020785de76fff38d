package models

// Entity is the base interface for locally persisted queue state.
type Entity interface {
	Key() string     // Key returns the unique identifier for this entity
	Validate() error // Validate checks if the entity's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific entity types.
type Repository[T Entity] interface {
	Create(entity T) error // Create inserts a new entity into the database
	Get(id string) (T, error)
	Update(entity T) error
	Delete(id string) error // Delete removes an entity from the database by its ID
	List() ([]T, error)     // List retrieves all stored entities
}

// Song represents a downloadable track from the public catalog.
type Song struct {
	TrackID         int64  `json:"trackId"`
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	CollectionName  string `json:"collectionName"`
	ArtworkURL      string `json:"artworkUrl100"`
	TrackViewURL    string `json:"trackViewUrl"`
	ReleaseDate     string `json:"releaseDate"`
	TrackTimeMillis int64  `json:"trackTimeMillis"`
}

// Album represents a track collection from the public catalog.
type Album struct {
	CollectionID      int64  `json:"collectionId"`
	CollectionName    string `json:"collectionName"`
	ArtistName        string `json:"artistName"`
	ArtworkURL        string `json:"artworkUrl100"`
	CollectionViewURL string `json:"collectionViewUrl"`
	ReleaseDate       string `json:"releaseDate"`
	TrackCount        int    `json:"trackCount"`
}

// Artist represents artist metadata from the public catalog.
type Artist struct {
	ArtistID         int64  `json:"artistId"`
	ArtistName       string `json:"artistName"`
	ArtistLinkURL    string `json:"artistLinkUrl"`
	PrimaryGenreName string `json:"primaryGenreName"`
}

// SearchResults holds one query's results separated by kind.
type SearchResults struct {
	Songs   []Song   `json:"songs"`
	Albums  []Album  `json:"albums"`
	Artists []Artist `json:"artists"`
}
