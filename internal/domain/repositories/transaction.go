package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx runs fn in a transaction. When ctx already carries a
	// transaction, fn joins it and the outer caller commits.
	ExecTx(ctx context.Context, fn TxFn) error
}
