package repository

import (
	"errors"

	"affily/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByWallet(walletAddress string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("wallet_address = ?", walletAddress).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreate returns the user for a wallet, creating an unapproved record
// with a fresh nonce on first connect.
func (r *UserRepository) GetOrCreate(walletAddress string) (*models.User, error) {
	u, err := r.GetByWallet(walletAddress)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u = &models.User{
		WalletAddress: walletAddress,
		IsApproved:    false,
		Nonce:         uuid.NewString(),
	}
	if err := r.db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// RotateNonce issues a new login challenge for the wallet.
func (r *UserRepository) RotateNonce(walletAddress string) (string, error) {
	nonce := uuid.NewString()
	err := r.db.Model(&models.User{}).
		Where("wallet_address = ?", walletAddress).
		Update("nonce", nonce).Error
	return nonce, err
}

func (r *UserRepository) ListUnapproved() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("is_approved = ?", false).Order("created_at ASC").Find(&users).Error
	return users, err
}

// Approve flips the one-way approval flag.
func (r *UserRepository) Approve(walletAddress string) error {
	res := r.db.Model(&models.User{}).
		Where("wallet_address = ?", walletAddress).
		Update("is_approved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
