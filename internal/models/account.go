package models

import (
	"time"
)

// Account is a login bound to an address. The address is the caller
// identity of every request made with the account's tokens.
type Account struct {
	ID        uint   `gorm:"primaryKey"`
	Address   string `gorm:"size:128;uniqueIndex"`
	Password  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
