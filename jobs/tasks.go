package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeBalanceVerify recomputes balances for the accounts touched by a
	// freshly posted transaction.
	TaskTypeBalanceVerify = "ledger:balance_verify"
	// TaskTypeGLIntegrity runs the periodic trial balance integrity check.
	TaskTypeGLIntegrity = "ledger:gl_integrity"
	// TaskTypeCacheRefresh rewarms the balance cache for all active accounts.
	TaskTypeCacheRefresh = "ledger:cache_refresh"
)

// BalanceVerifyPayload identifies the transaction that triggered verification
// and the accounts to recompute.
type BalanceVerifyPayload struct {
	TransactionID uuid.UUID   `json:"transaction_id"`
	AccountIDs    []uuid.UUID `json:"account_ids"`
}

// NewBalanceVerifyTask constructs an Asynq task for post-commit verification.
func NewBalanceVerifyTask(payload BalanceVerifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBalanceVerify, data), nil
}

// NewGLIntegrityTask constructs the periodic integrity check task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeGLIntegrity, nil)
}

// NewCacheRefreshTask constructs the periodic cache rewarm task.
func NewCacheRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCacheRefresh, nil)
}
