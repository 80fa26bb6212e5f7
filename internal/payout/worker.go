// Package payout executes persisted payment instructions through an external
// sender, one at a time and in the order they were emitted.
package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zaqqye/scholarship_backend/internal/coin"
)

// Instruction is a pending payment read from the outbox.
type Instruction struct {
	ID        uint
	Recipient string
	Amount    coin.Coin
	Attempts  int
	CreatedAt time.Time
}

// Outbox is the persisted queue of instructions.
type Outbox interface {
	// NextPending returns the oldest undispatched instruction.
	NextPending(ctx context.Context) (Instruction, bool, error)
	MarkDispatched(ctx context.Context, id uint, reference string, at time.Time) error
	MarkFailed(ctx context.Context, id uint, cause error) error
	Pending(ctx context.Context) (int64, error)
}

// Sender executes one instruction and returns a reference for it.
// Implementations receive the instruction ID and must treat a repeated ID as
// the same payment.
type Sender interface {
	Send(ctx context.Context, inst Instruction) (string, error)
}

// Recorder receives dispatch metrics.
type Recorder interface {
	ObservePayout(outcome string)
	SetPendingPayouts(n int64)
}

// ErrStopped is returned by DrainOnce when the sender failed and the
// instruction was left in place for the next round.
var ErrStopped = errors.New("payout: dispatch stopped on failed instruction")

// Worker polls the outbox and dispatches instructions.
type Worker struct {
	outbox   Outbox
	sender   Sender
	interval time.Duration
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// Option customises the worker.
type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(w *Worker) { w.recorder = r }
}

// WithClock sets the function used to stamp dispatch times.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker builds a worker. Defaults: 5s interval, slog.Default, time.Now.
func NewWorker(outbox Outbox, sender Sender, opts ...Option) *Worker {
	w := &Worker{
		outbox:   outbox,
		sender:   sender,
		interval: 5 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.interval <= 0 {
		w.interval = 5 * time.Second
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Run drains the outbox every interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.DrainOnce(ctx); err != nil && !errors.Is(err, ErrStopped) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("payout drain failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DrainOnce dispatches pending instructions in order until the outbox is
// empty or one fails. A failed instruction blocks the ones behind it.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	if w.outbox == nil || w.sender == nil {
		return 0, fmt.Errorf("payout: worker not configured")
	}
	defer w.reportPending(ctx)
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		inst, ok, err := w.outbox.NextPending(ctx)
		if err != nil {
			return sent, fmt.Errorf("payout: load pending: %w", err)
		}
		if !ok {
			return sent, nil
		}
		ref, err := w.sender.Send(ctx, inst)
		if err != nil {
			w.record("failed")
			w.logger.Warn("payout dispatch failed",
				slog.Uint64("instruction", uint64(inst.ID)),
				slog.String("recipient", inst.Recipient),
				slog.Int("attempts", inst.Attempts+1),
				slog.Any("error", err),
			)
			if markErr := w.outbox.MarkFailed(ctx, inst.ID, err); markErr != nil {
				return sent, fmt.Errorf("payout: mark failed: %w", markErr)
			}
			return sent, ErrStopped
		}
		if err := w.outbox.MarkDispatched(ctx, inst.ID, ref, w.now().UTC()); err != nil {
			return sent, fmt.Errorf("payout: mark dispatched: %w", err)
		}
		w.record("dispatched")
		w.logger.Info("payout dispatched",
			slog.Uint64("instruction", uint64(inst.ID)),
			slog.String("recipient", inst.Recipient),
			slog.String("amount", inst.Amount.String()),
			slog.String("reference", ref),
		)
		sent++
	}
}

func (w *Worker) record(outcome string) {
	if w.recorder != nil {
		w.recorder.ObservePayout(outcome)
	}
}

func (w *Worker) reportPending(ctx context.Context) {
	if w.recorder == nil {
		return
	}
	n, err := w.outbox.Pending(ctx)
	if err != nil {
		return
	}
	w.recorder.SetPendingPayouts(n)
}
