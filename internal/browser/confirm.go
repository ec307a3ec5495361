package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Confirmer blocks until a human signals that the page is ready.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) error
}

// TerminalConfirmer waits for a line on In after writing the prompt to Out.
// One buffered reader serves every call, so lines typed or piped ahead are
// kept for later confirmations.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer

	mu      sync.Mutex
	reader  *bufio.Reader
	pending chan error
}

// Confirm has no timeout of its own; only ctx or end of input release it.
// A read abandoned by a cancelled ctx is picked up by the next call.
func (t *TerminalConfirmer) Confirm(ctx context.Context, prompt string) error {
	fmt.Fprintf(t.Out, "\n%s", prompt)

	t.mu.Lock()
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	if t.pending == nil {
		done := make(chan error, 1)
		go func(r *bufio.Reader) {
			done <- readConfirmation(r)
		}(t.reader)
		t.pending = done
	}
	pending := t.pending
	t.mu.Unlock()

	select {
	case err := <-pending:
		t.mu.Lock()
		t.pending = nil
		t.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readConfirmation(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err == io.EOF {
		if line != "" {
			return nil
		}
		return fmt.Errorf("confirmation input closed: %w", err)
	}
	return err
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) error

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) error {
	return f(ctx, prompt)
}
