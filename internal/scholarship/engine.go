package scholarship

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zaqqye/scholarship_backend/internal/coin"
	"github.com/zaqqye/scholarship_backend/internal/identity"
)

// ReregisterPolicy decides what RegisterStudent does when the address
// already has a record.
type ReregisterPolicy int

const (
	// ReregisterOverwrite resets the existing record to unapproved and
	// unclaimed.
	ReregisterOverwrite ReregisterPolicy = iota
	// ReregisterReject fails with ErrAlreadyRegistered.
	ReregisterReject
)

func (p ReregisterPolicy) String() string {
	if p == ReregisterReject {
		return "reject"
	}
	return "overwrite"
}

// ParseReregisterPolicy parses "overwrite" or "reject". Empty means overwrite.
func ParseReregisterPolicy(s string) (ReregisterPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return ReregisterOverwrite, nil
	case "reject":
		return ReregisterReject, nil
	default:
		return ReregisterOverwrite, fmt.Errorf("unknown reregister policy %q", s)
	}
}

// Observer is notified of every operation outcome, keyed by Code.
type Observer interface {
	ObserveOperation(operation, code string)
}

// Engine applies the scholarship transitions against an injected Store.
type Engine struct {
	store      Store
	validator  identity.Validator
	emitter    Emitter
	observer   Observer
	logger     *slog.Logger
	reregister ReregisterPolicy
}

// Option customises the engine.
type Option func(*Engine)

// WithValidator sets the address validator. Defaults to identity.Basic.
func WithValidator(v identity.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithEmitter sets the audit event sink.
func WithEmitter(em Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithObserver sets the sink notified of every operation outcome.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithReregisterPolicy sets how RegisterStudent treats a known address.
// Defaults to ReregisterOverwrite.
func WithReregisterPolicy(p ReregisterPolicy) Option {
	return func(e *Engine) { e.reregister = p }
}

// NewEngine builds an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		validator: identity.Basic{},
		emitter:   NopEmitter{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		e.validator = identity.Basic{}
	}
	if e.emitter == nil {
		e.emitter = NopEmitter{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// InstantiateMsg carries the initialization parameters.
type InstantiateMsg struct {
	ScholarshipAmount coin.Uint128 `json:"scholarship_amount"`
	Denom             string       `json:"denom"`
}

// Initialize stores the config with the caller as admin. It succeeds once.
func (e *Engine) Initialize(ctx context.Context, caller string, msg InstantiateMsg) (Response, error) {
	const op = "instantiate"
	var cfg Config
	err := e.atomic(ctx, op, func(tx Tx) error {
		if strings.TrimSpace(caller) == "" {
			return ErrUnauthorized
		}
		_, exists, err := tx.LoadConfig(ctx)
		if err != nil {
			return &StorageError{Op: op, Err: err}
		}
		if exists {
			return ErrAlreadyInitialized
		}
		// The denom is opaque here and stored exactly as given.
		cfg = Config{Admin: caller, ScholarshipAmount: msg.ScholarshipAmount, Denom: msg.Denom}
		if err := tx.SaveConfig(ctx, cfg); err != nil {
			if errors.Is(err, ErrAlreadyInitialized) {
				return ErrAlreadyInitialized
			}
			return &StorageError{Op: op, Err: err}
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	res := newResponse(op).addAttribute("admin", caller)
	e.emit(res, "", nil)
	return res, nil
}

// RegisterStudent creates the record for addr. Admin only.
func (e *Engine) RegisterStudent(ctx context.Context, caller, addr string) (Response, error) {
	const op = "register_student"
	var canonical string
	var student Student
	err := e.atomic(ctx, op, func(tx Tx) error {
		if err := e.requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		var err error
		canonical, err = e.validate(addr)
		if err != nil {
			return err
		}
		if e.reregister == ReregisterReject {
			_, exists, err := tx.LoadStudent(ctx, canonical)
			if err != nil {
				return &StorageError{Op: op, Err: err}
			}
			if exists {
				return ErrAlreadyRegistered
			}
		}
		student = Student{}
		if err := tx.SaveStudent(ctx, canonical, student); err != nil {
			return &StorageError{Op: op, Err: err}
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	res := newResponse(op).addAttribute("student", canonical)
	e.emit(res, canonical, &student)
	return res, nil
}

// ApproveStudent marks a registered student approved. Admin only; approving
// twice is not an error.
func (e *Engine) ApproveStudent(ctx context.Context, caller, addr string) (Response, error) {
	const op = "approve_student"
	var canonical string
	var student Student
	err := e.atomic(ctx, op, func(tx Tx) error {
		if err := e.requireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		var err error
		canonical, err = e.validate(addr)
		if err != nil {
			return err
		}
		st, exists, err := tx.LoadStudent(ctx, canonical)
		if err != nil {
			return &StorageError{Op: op, Err: err}
		}
		if !exists {
			return ErrNotRegistered
		}
		st.Approved = true
		if err := tx.SaveStudent(ctx, canonical, st); err != nil {
			return &StorageError{Op: op, Err: err}
		}
		student = st
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	res := newResponse(op).addAttribute("student", canonical)
	e.emit(res, canonical, &student)
	return res, nil
}

// ClaimScholarship pays the configured amount to the caller. The record
// update and the payment instruction commit together or not at all.
func (e *Engine) ClaimScholarship(ctx context.Context, caller string) (Response, error) {
	const op = "claim_scholarship"
	var payment PaymentInstruction
	var student Student
	err := e.atomic(ctx, op, func(tx Tx) error {
		cfg, ok, err := tx.LoadConfig(ctx)
		if err != nil {
			return &StorageError{Op: op, Err: err}
		}
		if !ok {
			return ErrNotInitialized
		}
		st, exists, err := tx.LoadStudent(ctx, caller)
		if err != nil {
			return &StorageError{Op: op, Err: err}
		}
		if !exists {
			return ErrNotRegistered
		}
		if !st.Approved {
			return ErrNotApproved
		}
		if st.Claimed {
			return ErrAlreadyClaimed
		}
		st.Claimed = true
		if err := tx.SaveStudent(ctx, caller, st); err != nil {
			return &StorageError{Op: op, Err: err}
		}
		payment = PaymentInstruction{
			ToAddress: caller,
			Amount:    coin.New(cfg.ScholarshipAmount, cfg.Denom),
		}
		if err := tx.EnqueuePayment(ctx, payment); err != nil {
			return &StorageError{Op: op, Err: err}
		}
		student = st
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	res := newResponse(op).
		addMessage(payment).
		addAttribute("recipient", caller)
	e.emit(res, caller, &student)
	return res, nil
}

// GetStudent returns the record for addr. Any caller may query.
func (e *Engine) GetStudent(ctx context.Context, addr string) (Student, error) {
	st, ok, err := e.store.Student(ctx, addr)
	if err != nil {
		err = &StorageError{Op: "get_student", Err: err}
		e.observe("get_student", err)
		return Student{}, err
	}
	if !ok {
		e.observe("get_student", ErrNotFound)
		return Student{}, ErrNotFound
	}
	e.observe("get_student", nil)
	return st, nil
}

// GetConfig returns the singleton config.
func (e *Engine) GetConfig(ctx context.Context) (Config, error) {
	cfg, ok, err := e.store.Config(ctx)
	if err != nil {
		return Config{}, &StorageError{Op: "get_config", Err: err}
	}
	if !ok {
		return Config{}, ErrNotInitialized
	}
	return cfg, nil
}

// Authorize reports whether caller is the admin, with the same errors the
// admin-only operations return.
func (e *Engine) Authorize(ctx context.Context, caller string) error {
	cfg, err := e.GetConfig(ctx)
	if err != nil {
		return err
	}
	if caller == "" || caller != cfg.Admin {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireAdmin(ctx context.Context, tx Tx, caller string) error {
	cfg, ok, err := tx.LoadConfig(ctx)
	if err != nil {
		return &StorageError{Op: "load_config", Err: err}
	}
	if !ok {
		return ErrNotInitialized
	}
	if caller == "" || caller != cfg.Admin {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) validate(addr string) (string, error) {
	canonical, err := e.validator.Validate(addr)
	if err != nil {
		return "", &ValidationError{Field: "address", Value: addr, Err: err}
	}
	return canonical, nil
}

func (e *Engine) atomic(ctx context.Context, op string, fn func(tx Tx) error) error {
	err := asStorageError(op, e.store.Atomic(ctx, fn))
	e.observe(op, err)
	if err != nil {
		level := slog.LevelDebug
		if Code(err) == CodeStorage {
			level = slog.LevelError
		}
		e.logger.Log(ctx, level, "scholarship operation rejected",
			slog.String("operation", op),
			slog.String("code", Code(err)),
			slog.Any("error", err),
		)
	}
	return err
}

func (e *Engine) observe(op string, err error) {
	if e.observer != nil {
		e.observer.ObserveOperation(op, Code(err))
	}
}

func (e *Engine) emit(res Response, subject string, st *Student) {
	e.emitter.Emit(Event{
		Action:     res.Action(),
		Attributes: res.Attributes,
		Subject:    subject,
		Student:    st,
	})
}
