package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zaqqye/scholarship_backend/internal/coin"
)

type memOutbox struct {
	mu       sync.Mutex
	items    []Instruction
	sent     map[uint]string
	failures map[uint]int
}

func newMemOutbox(recipients ...string) *memOutbox {
	o := &memOutbox{sent: make(map[uint]string), failures: make(map[uint]int)}
	for i, r := range recipients {
		o.items = append(o.items, Instruction{
			ID:        uint(i + 1),
			Recipient: r,
			Amount:    coin.New(coin.NewUint128(1000), "ustake"),
		})
	}
	return o
}

func (o *memOutbox) NextPending(context.Context) (Instruction, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, it := range o.items {
		if _, done := o.sent[it.ID]; !done {
			it.Attempts = o.failures[it.ID]
			return it, true, nil
		}
	}
	return Instruction{}, false, nil
}

func (o *memOutbox) MarkDispatched(_ context.Context, id uint, ref string, _ time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, done := o.sent[id]; done {
		return errors.New("already dispatched")
	}
	o.sent[id] = ref
	return nil
}

func (o *memOutbox) MarkFailed(_ context.Context, id uint, _ error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[id]++
	return nil
}

func (o *memOutbox) Pending(context.Context) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return int64(len(o.items) - len(o.sent)), nil
}

type scriptedSender struct {
	calls  []string
	failOn map[string]int
}

func (s *scriptedSender) Send(_ context.Context, inst Instruction) (string, error) {
	s.calls = append(s.calls, inst.Recipient)
	if s.failOn[inst.Recipient] > 0 {
		s.failOn[inst.Recipient]--
		return "", errors.New("bank unavailable")
	}
	return "ref-" + inst.Recipient, nil
}

type countingRecorder struct {
	outcomes map[string]int
	pending  int64
}

func (c *countingRecorder) ObservePayout(outcome string) {
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

func (c *countingRecorder) SetPendingPayouts(n int64) { c.pending = n }

func TestDrainDispatchesInOrderOnce(t *testing.T) {
	outbox := newMemOutbox("s1", "s2", "s3")
	sender := &scriptedSender{}
	rec := &countingRecorder{}
	w := NewWorker(outbox, sender, WithRecorder(rec))

	n, err := w.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"s1", "s2", "s3"}, sender.calls)
	require.Equal(t, "ref-s2", outbox.sent[2])

	n, err = w.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, sender.calls, 3)
	require.Equal(t, 3, rec.outcomes["dispatched"])
	require.Zero(t, rec.pending)
}

func TestFailedInstructionBlocksLaterOnes(t *testing.T) {
	outbox := newMemOutbox("s1", "s2", "s3")
	sender := &scriptedSender{failOn: map[string]int{"s2": 1}}
	rec := &countingRecorder{}
	w := NewWorker(outbox, sender, WithRecorder(rec))

	n, err := w.DrainOnce(context.Background())
	require.ErrorIs(t, err, ErrStopped)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"s1", "s2"}, sender.calls)
	require.Equal(t, 1, outbox.failures[2])
	require.EqualValues(t, 2, rec.pending)

	n, err = w.DrainOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"s1", "s2", "s2", "s3"}, sender.calls)
	require.Equal(t, 1, rec.outcomes["failed"])
}

func TestRunStopsOnCancel(t *testing.T) {
	outbox := newMemOutbox("s1")
	sender := &scriptedSender{}
	w := NewWorker(outbox, sender, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		p, _ := outbox.Pending(context.Background())
		return p == 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWebhookSender(t *testing.T) {
	var got webhookRequest
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"reference":"tx-77"}`))
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	ref, err := s.Send(context.Background(), Instruction{
		ID:        7,
		Recipient: "s1",
		Amount:    coin.New(coin.NewUint128(1000), "ustake"),
	})
	require.NoError(t, err)
	require.Equal(t, "tx-77", ref)
	require.Equal(t, "7", key)
	require.Equal(t, "s1", got.ToAddress)
	require.Len(t, got.Amount, 1)
	require.Equal(t, "1000ustake", got.Amount[0].String())
}

func TestWebhookSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient funds", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewWebhookSender(srv.URL).Send(context.Background(), Instruction{ID: 1, Recipient: "s1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
}

func TestLogSender(t *testing.T) {
	ref, err := LogSender{}.Send(context.Background(), Instruction{ID: 3, Recipient: "s1"})
	require.NoError(t, err)
	require.Equal(t, "log-3", ref)
}
