package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls via the
// `qx any` argument. The concrete type is infra-defined (pgx.Tx for Postgres).
// Repositories must accept a nil qx and fall back to their pool.
type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction. If fn returns
// an error the transaction is rolled back, otherwise committed. All writes of
// a successful capture (purchase completion, the single discount-usage row,
// the cart clear) happen under one WithTx call.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
