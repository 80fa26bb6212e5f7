package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zaqqye/scholarship_backend/internal/models"
	"github.com/zaqqye/scholarship_backend/internal/payout"
)

// Outbox exposes the payment_instructions table to the payout worker and the
// admin API.
type Outbox struct {
	db *gorm.DB
}

func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) NextPending(ctx context.Context) (payout.Instruction, bool, error) {
	var row models.PaymentInstruction
	err := o.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("id ASC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return payout.Instruction{}, false, nil
	}
	if err != nil {
		return payout.Instruction{}, false, err
	}
	return payout.Instruction{
		ID:        row.ID,
		Recipient: row.Recipient,
		Amount:    paymentAmount(row),
		Attempts:  row.Attempts,
		CreatedAt: row.CreatedAt,
	}, true, nil
}

func (o *Outbox) MarkDispatched(ctx context.Context, id uint, reference string, at time.Time) error {
	res := o.db.WithContext(ctx).
		Model(&models.PaymentInstruction{}).
		Where("id = ? AND dispatched_at IS NULL", id).
		Updates(map[string]interface{}{
			"dispatched_at": at,
			"reference":     reference,
			"last_error":    "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment instruction %d not pending", id)
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id uint, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return o.db.WithContext(ctx).
		Model(&models.PaymentInstruction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
}

func (o *Outbox) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := o.db.WithContext(ctx).Model(&models.PaymentInstruction{}).Where("dispatched_at IS NULL").Count(&n).Error
	return n, err
}

// PaymentFilter narrows List. Status is "pending", "dispatched" or "all".
type PaymentFilter struct {
	Status    string
	Recipient string
	Limit     int
	Offset    int
}

func (o *Outbox) List(ctx context.Context, f PaymentFilter) ([]models.PaymentInstruction, int64, error) {
	base := o.db.WithContext(ctx).Model(&models.PaymentInstruction{})
	switch f.Status {
	case "pending":
		base = base.Where("dispatched_at IS NULL")
	case "dispatched":
		base = base.Where("dispatched_at IS NOT NULL")
	}
	if f.Recipient != "" {
		base = base.Where("recipient = ?", f.Recipient)
	}
	base = base.Session(&gorm.Session{})
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := base.Order("id ASC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var rows []models.PaymentInstruction
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
