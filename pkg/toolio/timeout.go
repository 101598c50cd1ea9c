package toolio

import (
	"context"
	"errors"
	"time"

	"github.com/alp-run/alp/pkg/alperr"
)

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

func isContextErr(ctx context.Context) bool {
	return ctx.Err() != nil
}

// timeoutOrCancel classifies a context's terminal error into the kernel's
// ErrTimeout/ErrCancelled distinction (spec.md section 5).
func timeoutOrCancel(ctx context.Context, toolName string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return alperr.New(alperr.KindTimeout, "tool %q timed out", toolName)
	}
	return alperr.New(alperr.KindCancelled, "tool %q call cancelled", toolName)
}
