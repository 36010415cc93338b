package caserecord

import (
	"context"

	"github.com/google/uuid"

	"github.com/radcase/radcase/internal/platform/auth"
)

// userIDFromContext pulls the session user ID off the request context. The
// zero UUID means the context carried no parseable identity; attribution
// fields are simply left unset in that case.
func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw := auth.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
