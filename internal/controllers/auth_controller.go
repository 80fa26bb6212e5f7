package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zaqqye/scholarship_backend/internal/identity"
	"github.com/zaqqye/scholarship_backend/internal/middleware"
	"github.com/zaqqye/scholarship_backend/internal/models"
	"github.com/zaqqye/scholarship_backend/internal/utils"
)

const tokenIssuer = "scholarship_backend"

type AuthController struct {
	DB            *gorm.DB
	Validator     identity.Validator
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type createAccountRequest struct {
	Address  string `json:"address" binding:"required"`
	Password string `json:"password" binding:"required"`
	Active   *bool  `json:"active"` // optional, defaults to true
}

type loginRequest struct {
	Address  string `json:"address" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateAccount provisions a login for an address. Admin only.
func (a *AuthController) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	address, err := a.validator().Validate(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address: " + err.Error()})
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pw, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	account := models.Account{
		Address:  address,
		Password: pw,
		Active:   active,
	}
	if err := a.DB.WithContext(c.Request.Context()).Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "created",
		"address": account.Address,
		"active":  account.Active,
	})
}

func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var account models.Account
	if err := a.DB.WithContext(c.Request.Context()).Where("address = ?", req.Address).First(&account).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !account.Active || !utils.CheckPassword(account.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	access, refresh, err := a.issueTokens(a.DB.WithContext(c.Request.Context()), account)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":       access.Token,
		"token_type":         "Bearer",
		"expires_in":         int(a.AccessTTL.Seconds()),
		"address":            account.Address,
		"refresh_token":      refresh.Token,
		"refresh_expires_in": int(a.RefreshTTL.Seconds()),
	})
}

func (a *AuthController) Me(c *gin.Context) {
	aVal, _ := c.Get(middleware.AccountKey)
	account := aVal.(models.Account)
	c.JSON(http.StatusOK, gin.H{
		"address":    account.Address,
		"active":     account.Active,
		"created_at": account.CreatedAt,
		"updated_at": account.UpdatedAt,
	})
}

type tokenPair struct {
	Token string
	JTI   string
}

func (a *AuthController) issueTokens(db *gorm.DB, account models.Account) (access tokenPair, refresh tokenPair, err error) {
	now := time.Now().UTC()
	sub := strconv.FormatUint(uint64(account.ID), 10)
	acl := middleware.Claims{
		Address: account.Address,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.AccessTTL)),
			Subject:   sub,
		},
	}
	atStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, acl).SignedString([]byte(a.AccessSecret))
	if err != nil {
		return
	}
	access = tokenPair{Token: atStr}

	// Refresh token with JTI
	jti := uuid.NewString()
	rcl := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.RefreshTTL)),
		Subject:   sub,
		ID:        jti,
	}
	rtStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, rcl).SignedString([]byte(a.RefreshSecret))
	if err != nil {
		return
	}
	refresh = tokenPair{Token: rtStr, JTI: jti}

	rec := models.RefreshToken{
		TokenID:   jti,
		AccountID: account.ID,
		TokenHash: utils.TokenHash(rtStr),
		ExpiresAt: now.Add(a.RefreshTTL),
	}
	err = db.Create(&rec).Error
	return
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token. The old token is revoked in the same
// transaction that issues its replacement, so a token is usable once.
func (a *AuthController) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tok, err := jwt.ParseWithClaims(req.RefreshToken, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(a.RefreshSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	var access, next tokenPair
	status := http.StatusOK
	msg := ""
	err = a.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var rec models.RefreshToken
		if err := tx.Where("token_hash = ?", utils.TokenHash(req.RefreshToken)).First(&rec).Error; err != nil {
			status, msg = http.StatusUnauthorized, "refresh token not found"
			return err
		}
		now := time.Now().UTC()
		if rec.RevokedAt != nil || now.After(rec.ExpiresAt) {
			status, msg = http.StatusUnauthorized, "refresh token expired or revoked"
			return errTokenRejected
		}
		var account models.Account
		if err := tx.Where("id = ? AND active = ?", rec.AccountID, true).First(&account).Error; err != nil {
			status, msg = http.StatusUnauthorized, "account not found or inactive"
			return err
		}
		// Revoke only if still live; a concurrent refresh loses here.
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", rec.ID).
			Updates(map[string]interface{}{"revoked_at": &now})
		if res.Error != nil {
			status, msg = http.StatusInternalServerError, "failed to rotate token"
			return res.Error
		}
		if res.RowsAffected == 0 {
			status, msg = http.StatusUnauthorized, "refresh token expired or revoked"
			return errTokenRejected
		}
		var err error
		access, next, err = a.issueTokens(tx, account)
		if err != nil {
			status, msg = http.StatusInternalServerError, "failed to issue tokens"
			return err
		}
		return tx.Model(&models.RefreshToken{}).Where("id = ?", rec.ID).Update("replaced_by_token_id", next.JTI).Error
	})
	if err != nil {
		if status == http.StatusOK {
			status, msg = http.StatusInternalServerError, "failed to rotate token"
		}
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":       access.Token,
		"token_type":         "Bearer",
		"expires_in":         int(a.AccessTTL.Seconds()),
		"refresh_token":      next.Token,
		"refresh_expires_in": int(a.RefreshTTL.Seconds()),
	})
}

var errTokenRejected = errors.New("refresh token rejected")

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"`
}

// Logout revokes refresh tokens (specific or all). Access tokens stay valid until expiry.
func (a *AuthController) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	db := a.DB.WithContext(c.Request.Context())
	now := time.Now().UTC()
	aVal, _ := c.Get(middleware.AccountKey)
	account, _ := aVal.(models.Account)
	if req.RefreshToken != "" {
		db.Model(&models.RefreshToken{}).
			Where("token_hash = ? AND account_id = ? AND revoked_at IS NULL", utils.TokenHash(req.RefreshToken), account.ID).
			Update("revoked_at", &now)
	}
	if req.All {
		db.Model(&models.RefreshToken{}).
			Where("account_id = ? AND revoked_at IS NULL", account.ID).
			Update("revoked_at", &now)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (a *AuthController) validator() identity.Validator {
	if a.Validator == nil {
		return identity.Basic{}
	}
	return a.Validator
}
