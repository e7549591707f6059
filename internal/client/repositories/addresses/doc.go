// Package addresses is the local cache of the signed-in user's postal
// addresses. Rows mirror the last successful remote read or write; the
// remote API stays the source of truth.
//
//	repo := addresses.NewSQLiteRepository(db)
//	_ = repo.ReplaceAll(ctx, fetched)
//	list, _ := repo.GetAll(ctx)
package addresses
