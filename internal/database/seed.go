package database

import (
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/zaqqye/scholarship_backend/internal/config"
	"github.com/zaqqye/scholarship_backend/internal/models"
	"github.com/zaqqye/scholarship_backend/internal/utils"
)

// SeedOperator creates the login account for OPERATOR_ADDRESS if it does
// not exist yet. The operator is expected to initialize the scholarship and
// so become its admin.
func SeedOperator(db *gorm.DB, cfg *config.Config) error {
	address := strings.TrimSpace(cfg.OperatorAddress)
	if address == "" {
		return nil
	}
	var existing models.Account
	err := db.Where("address = ?", address).Take(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if cfg.OperatorPassword == "" {
		return errors.New("OPERATOR_PASSWORD is required when OPERATOR_ADDRESS is set")
	}
	hashed, err := utils.HashPassword(cfg.OperatorPassword)
	if err != nil {
		return err
	}
	acc := models.Account{
		Address:  address,
		Password: hashed,
		Active:   true,
	}
	if err := db.Create(&acc).Error; err != nil {
		return err
	}
	slog.Info("seeded operator account", slog.String("address", address))
	return nil
}
