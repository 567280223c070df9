package trips

import "context"

// Repository persists trip records. Implementations keep insertion order.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	// InsertMany writes the batch in one call; an error means the batch was
	// rejected.
	InsertMany(ctx context.Context, recs []*Record) error
	// ListByOwner returns the records whose user_id equals userID, oldest
	// first, without storage ids.
	ListByOwner(ctx context.Context, userID string) ([]*Record, error)
}

// AddResponse is the body returned by POST /api/add.
type AddResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// BulkResponse is the body returned by POST /api/bulk.
type BulkResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}
