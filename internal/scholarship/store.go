package scholarship

import (
	"context"
	"sync"
)

// Tx is the view of the store inside one atomic unit. Writes become visible
// to other callers only if the enclosing Atomic call commits.
type Tx interface {
	LoadConfig(ctx context.Context) (Config, bool, error)
	// SaveConfig writes the singleton config. It returns ErrAlreadyInitialized
	// if a config was committed concurrently.
	SaveConfig(ctx context.Context, cfg Config) error
	// LoadStudent reads the record for addr and holds it for update until the
	// unit ends.
	LoadStudent(ctx context.Context, addr string) (Student, bool, error)
	SaveStudent(ctx context.Context, addr string, st Student) error
	EnqueuePayment(ctx context.Context, msg PaymentInstruction) error
}

// Store is the persistence substrate of the engine.
type Store interface {
	// Atomic runs fn as one all-or-nothing unit. If fn returns an error no
	// write made through the Tx is applied.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	Config(ctx context.Context) (Config, bool, error)
	Student(ctx context.Context, addr string) (Student, bool, error)
}

// MemStore is an in-memory Store. Units are serialised by a mutex and writes
// are staged until the callback succeeds.
type MemStore struct {
	mu       sync.Mutex
	config   *Config
	students map[string]Student
	payments []PaymentInstruction
}

func NewMemStore() *MemStore {
	return &MemStore{students: make(map[string]Student)}
}

func (m *MemStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m, students: make(map[string]Student)}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.config != nil {
		cfg := *tx.config
		m.config = &cfg
	}
	for addr, st := range tx.students {
		m.students[addr] = st
	}
	m.payments = append(m.payments, tx.payments...)
	return nil
}

func (m *MemStore) Config(context.Context) (Config, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return Config{}, false, nil
	}
	return *m.config, true, nil
}

func (m *MemStore) Student(_ context.Context, addr string) (Student, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.students[addr]
	return st, ok, nil
}

// Payments returns every committed payment instruction in emission order.
func (m *MemStore) Payments() []PaymentInstruction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PaymentInstruction, len(m.payments))
	copy(out, m.payments)
	return out
}

type memTx struct {
	store    *MemStore
	config   *Config
	students map[string]Student
	payments []PaymentInstruction
}

func (t *memTx) LoadConfig(context.Context) (Config, bool, error) {
	if t.config != nil {
		return *t.config, true, nil
	}
	if t.store.config == nil {
		return Config{}, false, nil
	}
	return *t.store.config, true, nil
}

func (t *memTx) SaveConfig(_ context.Context, cfg Config) error {
	if t.config != nil || t.store.config != nil {
		return ErrAlreadyInitialized
	}
	t.config = &cfg
	return nil
}

func (t *memTx) LoadStudent(_ context.Context, addr string) (Student, bool, error) {
	if st, ok := t.students[addr]; ok {
		return st, true, nil
	}
	st, ok := t.store.students[addr]
	return st, ok, nil
}

func (t *memTx) SaveStudent(_ context.Context, addr string, st Student) error {
	t.students[addr] = st
	return nil
}

func (t *memTx) EnqueuePayment(_ context.Context, msg PaymentInstruction) error {
	t.payments = append(t.payments, msg)
	return nil
}
