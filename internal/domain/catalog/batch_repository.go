package catalog

import (
	"context"

	"github.com/google/uuid"
)

// BatchRepository keeps working batches between user edits.
// Batches are short lived; implementations may expire them.
type BatchRepository interface {
	// FindByID returns the batch or ErrBatchNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// Save stores the batch if its Version still matches the stored one
	// (zero for a new batch) and then increments batch.Version.
	// It returns ErrBatchConflict on a version mismatch and ErrBatchNotFound
	// when a previously stored batch has expired.
	Save(ctx context.Context, batch *Batch) error

	// Delete removes the batch
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReferenceRepository loads the barcode code tables of a company
type ReferenceRepository interface {
	Tables(ctx context.Context, companyID string) (*ReferenceTables, error)
}
