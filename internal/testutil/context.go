package testutil

import (
	"context"

	"github.com/settlehq/settle/internal/types"
)

// TestOwnerID is the invoice owner used by default in service tests
const TestOwnerID = "user_01TESTOWNER"

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxUserID, TestOwnerID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}
