// Package dbctx bundles a request-scoped context.Context with an
// optional in-flight GORM transaction, so repo methods can run either
// standalone or as part of a caller's transaction without two code paths.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Resolve returns the transaction handle to use, falling back to db when
// the caller didn't supply one.
func (c Context) Resolve(db *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return db
}
