package port

import "context"

// CaptchaSolver resolves an anti-bot challenge into a submit token.
// Implementations poll a third-party service and must respect ctx.
type CaptchaSolver interface {
	SolveTurnstile(ctx context.Context) (token string, err error)
}
