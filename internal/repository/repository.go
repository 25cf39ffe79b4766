// Package repository provides data access interfaces and implementations
// for the curation service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL
// implementations following the repository pattern to abstract data
// persistence from curation logic.
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple
// goroutines. The underlying pgxpool handles connection pooling and
// synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Common errors include:
//
//   - domain.ErrNotFound: paper does not exist
//   - domain.ErrAlreadyExists: unique title constraint violation
//   - domain.ErrInvalidInput: invalid parameters provided
//
// # Transactions
//
// Repositories accept the DBTX interface, so both the pool and a pgx.Tx from
// database.DB.WithTransaction can back them:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    txRepo := repository.NewPgCuratedPaperRepository(tx)
//	    _, err := txRepo.Insert(ctx, paper)
//	    return err
//	})
package repository

import (
	"github.com/skimlabs/curation-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Pagination defaults and limits for list queries.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// applyPaginationDefaults clamps limit to [1, maxListLimit] and ensures
// offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultListLimit
	}
	if *limit > maxListLimit {
		*limit = maxListLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
