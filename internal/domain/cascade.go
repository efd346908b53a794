package domain

// CascadeStep identifies one step of a cascade delete. Steps always run
// in declaration order; each is safe to re-run after a partial failure.
type CascadeStep string

const (
	StepPermissionChecked CascadeStep = "PERMISSION_CHECKED"
	StepGrantsRemoved     CascadeStep = "GRANTS_REMOVED"
	StepBlobsRemoved      CascadeStep = "BLOBS_REMOVED"
	StepEntityRemoved     CascadeStep = "ENTITY_REMOVED"
)

// CascadeState is the terminal state of a cascade delete.
type CascadeState string

const (
	CascadeDone   CascadeState = "DONE"
	CascadeFailed CascadeState = "FAILED"
)

// CascadeResult reports what a cascade delete accomplished. On FAILED the
// target entity is still present and the call can be retried; completed
// steps are no-ops on the retry.
type CascadeResult struct {
	State     CascadeState
	Completed []CascadeStep
	Failed    []StepFailure
	// RemovedGrants counts grant rows deleted across all steps, including
	// those of recursively deleted datasets.
	RemovedGrants int
	// RemovedBlobs counts blob keys successfully deleted.
	RemovedBlobs int
}
