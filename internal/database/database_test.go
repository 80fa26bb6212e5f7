package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaqqye/scholarship_backend/internal/coin"
	"github.com/zaqqye/scholarship_backend/internal/config"
	"github.com/zaqqye/scholarship_backend/internal/models"
	"github.com/zaqqye/scholarship_backend/internal/scholarship"
	"github.com/zaqqye/scholarship_backend/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newEngine(t *testing.T, db *gorm.DB) *scholarship.Engine {
	t.Helper()
	engine := scholarship.NewEngine(NewScholarshipStore(db))
	_, err := engine.Initialize(context.Background(), "admin_user", scholarship.InstantiateMsg{
		ScholarshipAmount: coin.NewUint128(1000),
		Denom:             "ustake",
	})
	require.NoError(t, err)
	return engine
}

func TestStoreFullFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	engine := newEngine(t, db)

	_, err := engine.RegisterStudent(ctx, "admin_user", "s1")
	require.NoError(t, err)
	_, err = engine.ClaimScholarship(ctx, "s1")
	require.ErrorIs(t, err, scholarship.ErrNotApproved)
	_, err = engine.ApproveStudent(ctx, "admin_user", "s1")
	require.NoError(t, err)
	_, err = engine.ApproveStudent(ctx, "admin_user", "s1")
	require.NoError(t, err)

	res, err := engine.ClaimScholarship(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	_, err = engine.ClaimScholarship(ctx, "s1")
	require.ErrorIs(t, err, scholarship.ErrAlreadyClaimed)
	_, err = engine.ClaimScholarship(ctx, "s2")
	require.ErrorIs(t, err, scholarship.ErrNotRegistered)

	st, err := engine.GetStudent(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, scholarship.Student{Approved: true, Claimed: true}, st)

	var payments []models.PaymentInstruction
	require.NoError(t, db.Find(&payments).Error)
	require.Len(t, payments, 1)
	require.Equal(t, "s1", payments[0].Recipient)
	require.Equal(t, "ustake", payments[0].Denom)
	require.Equal(t, "1000", payments[0].Amount.String())
	require.Nil(t, payments[0].DispatchedAt)

	cfg, err := engine.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin_user", cfg.Admin)
	require.Equal(t, "1000", cfg.ScholarshipAmount.String())

	_, err = engine.Initialize(ctx, "other", scholarship.InstantiateMsg{Denom: "uatom"})
	require.ErrorIs(t, err, scholarship.ErrAlreadyInitialized)
}

func TestStoreLargeAmountRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	engine := scholarship.NewEngine(NewScholarshipStore(db))
	largest := coin.MustParseUint128("340282366920938463463374607431768211455")
	_, err := engine.Initialize(ctx, "admin_user", scholarship.InstantiateMsg{ScholarshipAmount: largest, Denom: "ustake"})
	require.NoError(t, err)

	cfg, err := engine.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.ScholarshipAmount.Cmp(largest))
}

func TestAtomicRollsBack(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := NewScholarshipStore(db)
	boom := errors.New("boom")

	err := store.Atomic(ctx, func(tx scholarship.Tx) error {
		require.NoError(t, tx.SaveStudent(ctx, "s1", scholarship.Student{Approved: true}))
		require.NoError(t, tx.EnqueuePayment(ctx, scholarship.PaymentInstruction{
			ToAddress: "s1",
			Amount:    coin.New(coin.NewUint128(5), "ustake"),
		}))
		st, ok, err := tx.LoadStudent(ctx, "s1")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, st.Approved)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok, err := store.Student(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)
	var count int64
	require.NoError(t, db.Model(&models.PaymentInstruction{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestSaveConfigLosesRaceAsAlreadyInitialized(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	newEngine(t, db)
	store := NewScholarshipStore(db)

	// A second writer that missed the committed row still cannot insert.
	err := store.Atomic(ctx, func(tx scholarship.Tx) error {
		return tx.SaveConfig(ctx, scholarship.Config{Admin: "intruder", Denom: "uatom"})
	})
	require.ErrorIs(t, err, scholarship.ErrAlreadyInitialized)

	cfg, ok, err := store.Config(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "admin_user", cfg.Admin)
	require.Equal(t, "ustake", cfg.Denom)
}

func TestSaveStudentOverwrites(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := NewScholarshipStore(db)

	require.NoError(t, store.Atomic(ctx, func(tx scholarship.Tx) error {
		return tx.SaveStudent(ctx, "s1", scholarship.Student{Approved: true, Claimed: true})
	}))
	require.NoError(t, store.Atomic(ctx, func(tx scholarship.Tx) error {
		return tx.SaveStudent(ctx, "s1", scholarship.Student{})
	}))
	st, ok, err := store.Student(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, scholarship.Student{}, st)

	var count int64
	require.NoError(t, db.Model(&models.Student{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestListStudents(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	engine := newEngine(t, db)
	store := NewScholarshipStore(db)

	for _, addr := range []string{"s1", "s2", "s3"} {
		_, err := engine.RegisterStudent(ctx, "admin_user", addr)
		require.NoError(t, err)
	}
	_, err := engine.ApproveStudent(ctx, "admin_user", "s2")
	require.NoError(t, err)

	rows, total, err := store.ListStudents(ctx, StudentFilter{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, "s1", rows[0].Address)

	approved := true
	rows, total, err = store.ListStudents(ctx, StudentFilter{Approved: &approved})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "s2", rows[0].Address)

	rows, total, err = store.ListStudents(ctx, StudentFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, rows, 1)
	require.Equal(t, "s3", rows[0].Address)
}

func TestOutboxOrdering(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	engine := newEngine(t, db)
	outbox := NewOutbox(db)

	for _, addr := range []string{"s1", "s2"} {
		_, err := engine.RegisterStudent(ctx, "admin_user", addr)
		require.NoError(t, err)
		_, err = engine.ApproveStudent(ctx, "admin_user", addr)
		require.NoError(t, err)
	}
	_, err := engine.ClaimScholarship(ctx, "s2")
	require.NoError(t, err)
	_, err = engine.ClaimScholarship(ctx, "s1")
	require.NoError(t, err)

	pending, err := outbox.Pending(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, pending)

	first, ok, err := outbox.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s2", first.Recipient)
	require.Equal(t, "1000ustake", first.Amount.String())

	require.NoError(t, outbox.MarkFailed(ctx, first.ID, errors.New("bank down")))
	again, ok, err := outbox.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, 1, again.Attempts)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, outbox.MarkDispatched(ctx, first.ID, "tx-1", now))
	require.Error(t, outbox.MarkDispatched(ctx, first.ID, "tx-1", now))

	second, ok, err := outbox.NextPending(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s1", second.Recipient)
	require.NoError(t, outbox.MarkDispatched(ctx, second.ID, "tx-2", now))

	_, ok, err = outbox.NextPending(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	rows, total, err := outbox.List(ctx, PaymentFilter{Status: "dispatched"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "tx-1", rows[0].Reference)
	require.Empty(t, rows[0].LastError)

	_, total, err = outbox.List(ctx, PaymentFilter{Status: "pending"})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestSeedOperator(t *testing.T) {
	db := setupTestDB(t)
	cfg := &config.Config{OperatorAddress: "operator_1", OperatorPassword: "secret123"}
	require.NoError(t, SeedOperator(db, cfg))
	require.NoError(t, SeedOperator(db, cfg))

	var accounts []models.Account
	require.NoError(t, db.Find(&accounts).Error)
	require.Len(t, accounts, 1)
	require.True(t, accounts[0].Active)
	require.True(t, utils.CheckPassword(accounts[0].Password, "secret123"))

	require.Error(t, SeedOperator(setupTestDB(t), &config.Config{OperatorAddress: "operator_1"}))
	require.NoError(t, SeedOperator(db, &config.Config{}))
}
