package domain

import "time"

// Account is a user of the system. Grants link accounts to the datasets
// they may see; the account itself never stores its granted datasets.
type Account struct {
	ID           string
	Username     string
	Role         string // ADMIN, CONTENT_MANAGER or USER
	Enabled      bool
	PasswordHash string
	FullName     string
	Organization string
	Email        string
	CreatedAt    time.Time
	LastModified time.Time
}

// CreateAccountRequest holds parameters for creating a new account.
type CreateAccountRequest struct {
	Username     string
	Password     string
	Role         string
	Enabled      bool
	FullName     string
	Organization string
	Email        string
	// GrantedDatasetIDs is the initial desired grant set, applied through
	// the grant synchronizer after the account row exists.
	GrantedDatasetIDs []string
}

// Validate checks that the request is well-formed.
func (r *CreateAccountRequest) Validate() error {
	if r.Username == "" {
		return ErrValidation("username is required")
	}
	if r.Password == "" {
		return ErrValidation("password is required")
	}
	if r.Role == "" {
		r.Role = RoleUser
	}
	if !ValidRole(r.Role) {
		return ErrValidation("role must be ADMIN, CONTENT_MANAGER or USER")
	}
	return nil
}

// UpdateAccountRequest holds the mutable account fields. Nil pointers
// leave the corresponding field unchanged.
type UpdateAccountRequest struct {
	Password     *string
	Role         *string
	Enabled      *bool
	FullName     *string
	Organization *string
	Email        *string
}

// Validate checks that the request is well-formed.
func (r *UpdateAccountRequest) Validate() error {
	if r.Role != nil && !ValidRole(*r.Role) {
		return ErrValidation("role must be ADMIN, CONTENT_MANAGER or USER")
	}
	if r.Password != nil && *r.Password == "" {
		return ErrValidation("password must not be empty")
	}
	return nil
}

// Selection is a saved subset of a dataset's rows owned by an account.
// Selections are removed when their owning account is cascade-deleted and
// when their dataset is deleted.
type Selection struct {
	ID           string
	AccountID    string
	DatasetID    string
	Name         string
	Criteria     string // JSON filter expression, opaque to this subsystem
	CreatedAt    time.Time
	LastModified time.Time
}

// Task is an asynchronous job record owned by an account. Removed when
// the owning account is cascade-deleted.
type Task struct {
	ID           string
	AccountID    string
	Kind         string
	State        string
	Detail       string
	CreatedAt    time.Time
	LastModified time.Time
}
