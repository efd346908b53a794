package domain

import "time"

// Dataset is a scientific dataset: descriptive metadata in the store plus
// blob resources (a preview image and feature files) in the object store.
// Which accounts may see it is recorded exclusively in Grant rows.
type Dataset struct {
	ID                 string
	Name               string
	Description        string
	Organism           string
	Technology         string
	Enabled            bool
	CreatedByAccountID string // empty when the creator was detach-deleted
	ImageKey           string // blob key of the preview image, empty if none
	CreatedAt          time.Time
	LastModified       time.Time
}

// DatasetFile references one feature/matrix file of a dataset in the
// object store.
type DatasetFile struct {
	ID        string
	DatasetID string
	Key       string
	Name      string
	CreatedAt time.Time
}

// CreateDatasetRequest holds parameters for creating a new dataset.
type CreateDatasetRequest struct {
	Name        string
	Description string
	Organism    string
	Technology  string
	Enabled     bool
	ImageKey    string
	// GrantedAccountIDs is the initial desired grant set, applied through
	// the grant synchronizer after the dataset row exists.
	GrantedAccountIDs []string
}

// Validate checks that the request is well-formed.
func (r *CreateDatasetRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("dataset name is required")
	}
	return nil
}

// UpdateDatasetRequest holds the mutable dataset fields. Nil pointers
// leave the corresponding field unchanged.
type UpdateDatasetRequest struct {
	Name        *string
	Description *string
	Organism    *string
	Technology  *string
	Enabled     *bool
	ImageKey    *string
}

// Validate checks that the request is well-formed.
func (r *UpdateDatasetRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return ErrValidation("dataset name must not be empty")
	}
	return nil
}
