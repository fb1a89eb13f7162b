package port

import "context"

// CodePrompter solicits a one-time code from the operator. Front ends
// (interactive menu, telegram bot) implement this; the core only calls it.
type CodePrompter interface {
	PromptCode(ctx context.Context, account string) (string, error)
}

// Sink is the operator-facing output surface.
type Sink interface {
	WriteLine(line string) error
}
