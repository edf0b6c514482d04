// Package shutdown cancels an analysis run on SIGINT/SIGTERM and runs the
// registered cleanup callbacks.
package shutdown

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/PentesterFlow/jalapi/internal/logger"
)

// Handler manages graceful shutdown.
type Handler struct {
	mu        sync.Mutex
	callbacks []namedCallback

	// State
	isShuttingDown atomic.Bool
	interrupted    atomic.Bool
	done           chan struct{}
	timeout        time.Duration

	// Run context, cancelled by a signal or by Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	sigChan  chan os.Signal
	stopOnce sync.Once
	stop     chan struct{}

	onSignal func(os.Signal)
	log      *logger.Logger
}

// Callback is a function called during shutdown.
type Callback func(ctx context.Context) error

type namedCallback struct {
	name string
	fn   Callback
}

// Config holds shutdown configuration.
type Config struct {
	Timeout  time.Duration // budget for all cleanup callbacks
	Signals  []os.Signal
	OnSignal func(os.Signal)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// New creates a handler whose Context derives from parent and starts
// listening for signals.
func New(parent context.Context, cfg Config, log *logger.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		done:     make(chan struct{}),
		timeout:  cfg.Timeout,
		ctx:      ctx,
		cancel:   cancel,
		sigChan:  make(chan os.Signal, 1),
		stop:     make(chan struct{}),
		onSignal: cfg.OnSignal,
		log:      logger.OrNop(log).WithComponent("shutdown"),
	}

	signal.Notify(h.sigChan, cfg.Signals...)
	go h.listen()

	return h
}

func (h *Handler) listen() {
	select {
	case sig := <-h.sigChan:
		h.interrupted.Store(true)
		h.log.Event(logger.WarnLevel).Str("signal", sig.String()).Msg("Received signal, cancelling analysis")
		if h.onSignal != nil {
			h.onSignal(sig)
		}
		h.cancel()
	case <-h.stop:
	}
}

// Register registers a cleanup callback. Callbacks run in reverse
// registration order.
func (h *Handler) Register(name string, callback Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.callbacks = append(h.callbacks, namedCallback{name: name, fn: callback})
}

// RegisterCloser registers c.Close as a cleanup callback.
func (h *Handler) RegisterCloser(name string, c io.Closer) {
	h.Register(name, func(context.Context) error {
		return c.Close()
	})
}

// Context returns the run context. It is cancelled when a signal arrives
// or shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted reports whether a signal cancelled the run.
func (h *Handler) Interrupted() bool {
	return h.interrupted.Load()
}

// IsShuttingDown returns whether shutdown is in progress.
func (h *Handler) IsShuttingDown() bool {
	return h.isShuttingDown.Load()
}

// Done returns a channel that is closed when shutdown completes.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Shutdown stops signal handling, cancels the run context and runs the
// callbacks LIFO within the configured timeout. It returns the callback
// errors. Calls after the first return nil.
func (h *Handler) Shutdown() []error {
	if !h.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	defer close(h.done)

	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.stop)
	})
	h.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), h.timeout)
	defer shutdownCancel()

	h.mu.Lock()
	callbacks := make([]namedCallback, len(h.callbacks))
	copy(callbacks, h.callbacks)
	h.mu.Unlock()

	var errs []error
	for i := len(callbacks) - 1; i >= 0; i-- {
		cb := callbacks[i]
		if err := h.executeCallback(shutdownCtx, cb); err != nil {
			h.log.Event(logger.WarnLevel).Err(err).Str("callback", cb.name).Msg("Cleanup failed")
			errs = append(errs, err)
		}
	}
	return errs
}

// executeCallback executes a shutdown callback with timeout handling.
func (h *Handler) executeCallback(ctx context.Context, cb namedCallback) error {
	done := make(chan error, 1)

	go func() {
		done <- cb.fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &TimeoutError{CallbackName: cb.name}
	}
}

// Trigger delivers SIGTERM to the handler as if the process received it.
func (h *Handler) Trigger() {
	select {
	case h.sigChan <- syscall.SIGTERM:
	default:
		// Signal already pending
	}
}

// TimeoutError is returned when a callback times out.
type TimeoutError struct {
	CallbackName string
}

func (e *TimeoutError) Error() string {
	return "shutdown callback timed out: " + e.CallbackName
}
