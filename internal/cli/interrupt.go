package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels an import on SIGINT/SIGTERM and tells the user
// what was kept.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	saved       int
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &InterruptHandler{writer: writer}
}

// HandleInterrupts returns a context that is canceled on the first interrupt signal.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) context.Context {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx = h.watch(ctx, sigChan)
	go func() {
		<-ctx.Done()
		signal.Stop(sigChan)
	}()
	return ctx
}

func (h *InterruptHandler) watch(ctx context.Context, signals <-chan os.Signal) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.cancelFunc = cancel

	go func() {
		select {
		case <-signals:
		case <-ctx.Done():
			return
		}
		h.mu.Lock()
		if !h.interrupted {
			h.interrupted = true
			h.showInterruptMessage()
		}
		h.mu.Unlock()
		cancel()
	}()

	return ctx
}

// Saved records how many statements have been stored so far.
func (h *InterruptHandler) Saved(n int) {
	h.mu.Lock()
	h.saved = n
	h.mu.Unlock()
}

// showInterruptMessage must be called with h.mu held.
func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n" + FormatWarning("Import interrupted!")

	if h.saved > 0 {
		msg += "\n" + FormatInfo(fmt.Sprintf("%d statement(s) were saved. Re-running the import skips them as duplicates.", h.saved))
	} else {
		msg += "\n" + FormatInfo("Nothing was saved.")
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		// Best effort, we're shutting down anyway
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
