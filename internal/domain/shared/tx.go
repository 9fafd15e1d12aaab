package shared

import "context"

// TxRunner executes a function inside one storage transaction. Repository
// calls made with the context the callback receives join that transaction,
// so a workflow action commits all of its writes or none of them.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
