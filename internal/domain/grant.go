package domain

import "time"

// Grant links an account to a dataset it may access. It is the single
// source of truth for the relation; `granted_datasets` on an account and
// `granted_accounts` on a dataset are views derived from these rows.
//
// At most one Grant exists per (AccountID, DatasetID) pair; the store
// enforces this with a unique index.
type Grant struct {
	ID           string
	AccountID    string
	DatasetID    string
	Comment      string
	CreatedAt    time.Time
	LastModified time.Time
}

// CreateGrantRequest holds parameters for creating a single grant.
type CreateGrantRequest struct {
	AccountID string
	DatasetID string
	Comment   string
}

// Validate checks that the request is well-formed.
func (r *CreateGrantRequest) Validate() error {
	if r.AccountID == "" {
		return ErrValidation("account_id is required")
	}
	if r.DatasetID == "" {
		return ErrValidation("dataset_id is required")
	}
	return nil
}

// Resource types used by the access decision.
const (
	ResourceAccount = "account"
	ResourceDataset = "dataset"
	ResourceGrant   = "grant"
)

// Entity types accepted by the grant synchronizer. The counterpart of an
// account entity is a dataset id and vice versa.
const (
	EntityAccount = "account"
	EntityDataset = "dataset"
)
