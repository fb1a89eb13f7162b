package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"arkx/internal/application/port"
)

type Sink struct{}

func NewSink() port.Sink { return &Sink{} }

func (s *Sink) WriteLine(line string) error {
	fmt.Println(line)
	return nil
}

// Prompter reads one-time codes from the terminal. Reads run on their own
// goroutine so a cancelled context aborts the wait even while stdin blocks.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter() port.CodePrompter {
	return &Prompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (p *Prompter) PromptCode(ctx context.Context, account string) (string, error) {
	fmt.Fprintf(p.out, "输入 %s 的 2FA 验证码: ", account)

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		return strings.TrimSpace(r.line), nil
	}
}

var _ port.CodePrompter = (*Prompter)(nil)
