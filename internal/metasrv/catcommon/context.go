// Package catcommon provides context management utilities shared across the
// meta catalog service: the principal performing a DDL operation and the
// session's current database.
package catcommon

import (
	"context"

	"github.com/google/uuid"
)

// ctxKeyType represents the type for all context keys
type ctxKeyType string

const (
	ctxPrincipalKey ctxKeyType = "CatalogPrincipal"
	ctxDatabaseKey  ctxKeyType = "CatalogDatabase"
)

// SetPrincipalInContext sets the principal id (the owner recorded on objects
// created in this context) in the provided context.
func SetPrincipalInContext(ctx context.Context, principal uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, principal)
}

// PrincipalFromContext retrieves the principal id from the provided context.
// Returns uuid.Nil when no principal was set.
func PrincipalFromContext(ctx context.Context) uuid.UUID {
	if principal, ok := ctx.Value(ctxPrincipalKey).(uuid.UUID); ok {
		return principal
	}
	return uuid.Nil
}

// SetDatabaseInContext sets the session's current database name.
func SetDatabaseInContext(ctx context.Context, database string) context.Context {
	return context.WithValue(ctx, ctxDatabaseKey, database)
}

// DatabaseFromContext retrieves the session's current database name.
func DatabaseFromContext(ctx context.Context) string {
	if database, ok := ctx.Value(ctxDatabaseKey).(string); ok {
		return database
	}
	return ""
}
