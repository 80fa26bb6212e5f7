package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/scholarship_backend/internal/coin"
	"github.com/zaqqye/scholarship_backend/internal/models"
	"github.com/zaqqye/scholarship_backend/internal/scholarship"
)

// ScholarshipStore is the gorm implementation of scholarship.Store. Each
// atomic unit is one database transaction; student rows are locked with
// SELECT ... FOR UPDATE where the dialect supports it.
type ScholarshipStore struct {
	db *gorm.DB
}

func NewScholarshipStore(db *gorm.DB) *ScholarshipStore {
	return &ScholarshipStore{db: db}
}

func (s *ScholarshipStore) Atomic(ctx context.Context, fn func(tx scholarship.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *ScholarshipStore) Config(ctx context.Context) (scholarship.Config, bool, error) {
	return loadConfig(s.db.WithContext(ctx))
}

func (s *ScholarshipStore) Student(ctx context.Context, addr string) (scholarship.Student, bool, error) {
	var row models.Student
	err := s.db.WithContext(ctx).Where("address = ?", addr).Take(&row).Error
	return studentResult(row, err)
}

// StudentFilter narrows ListStudents. Nil flags match any value.
type StudentFilter struct {
	Approved *bool
	Claimed  *bool
	Limit    int
	Offset   int
	OrderBy  string
}

// ListStudents returns one page of registry rows and the total match count.
func (s *ScholarshipStore) ListStudents(ctx context.Context, f StudentFilter) ([]models.Student, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.Student{})
	if f.Approved != nil {
		base = base.Where("approved = ?", *f.Approved)
	}
	if f.Claimed != nil {
		base = base.Where("claimed = ?", *f.Claimed)
	}
	base = base.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := f.OrderBy
	if order == "" {
		order = "address ASC"
	}
	q := base.Order(order)
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var rows []models.Student
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LoadConfig(ctx context.Context) (scholarship.Config, bool, error) {
	return loadConfig(t.db.WithContext(ctx))
}

func (t *gormTx) SaveConfig(ctx context.Context, cfg scholarship.Config) error {
	row := models.ScholarshipConfig{
		ID:                models.ConfigRowID,
		Admin:             cfg.Admin,
		ScholarshipAmount: cfg.ScholarshipAmount,
		Denom:             cfg.Denom,
	}
	err := t.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another Initialize committed between our load and insert.
		return scholarship.ErrAlreadyInitialized
	}
	return err
}

func (t *gormTx) LoadStudent(ctx context.Context, addr string) (scholarship.Student, bool, error) {
	var row models.Student
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", addr).
		Take(&row).Error
	return studentResult(row, err)
}

func (t *gormTx) SaveStudent(ctx context.Context, addr string, st scholarship.Student) error {
	row := models.Student{Address: addr, Approved: st.Approved, Claimed: st.Claimed}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"approved", "claimed", "updated_at"}),
	}).Create(&row).Error
}

func (t *gormTx) EnqueuePayment(ctx context.Context, msg scholarship.PaymentInstruction) error {
	row := models.PaymentInstruction{
		Recipient: msg.ToAddress,
		Denom:     msg.Amount.Denom,
		Amount:    msg.Amount.Amount,
	}
	return t.db.WithContext(ctx).Create(&row).Error
}

func loadConfig(db *gorm.DB) (scholarship.Config, bool, error) {
	var row models.ScholarshipConfig
	err := db.Where("id = ?", models.ConfigRowID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return scholarship.Config{}, false, nil
	}
	if err != nil {
		return scholarship.Config{}, false, err
	}
	return scholarship.Config{
		Admin:             row.Admin,
		ScholarshipAmount: row.ScholarshipAmount,
		Denom:             row.Denom,
	}, true, nil
}

func studentResult(row models.Student, err error) (scholarship.Student, bool, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return scholarship.Student{}, false, nil
	}
	if err != nil {
		return scholarship.Student{}, false, err
	}
	return scholarship.Student{Approved: row.Approved, Claimed: row.Claimed}, true, nil
}

func paymentAmount(row models.PaymentInstruction) coin.Coin {
	return coin.New(row.Amount, row.Denom)
}
