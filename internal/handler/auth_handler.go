package handler

import (
	"fmt"
	"net/http"

	"affily/config"
	"affily/internal/auth"
	"affily/internal/repository"
	"affily/pkg/chain"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
}

func NewAuthHandler(cfg *config.Config, userRepo *repository.UserRepository) *AuthHandler {
	return &AuthHandler{cfg: cfg, userRepo: userRepo}
}

func challengeMessage(nonce string) string {
	return fmt.Sprintf("Sign this message to log in to Affily.\nNonce: %s", nonce)
}

// Challenge handles POST /auth/challenge — issues a signing challenge for a
// wallet, creating the (unapproved) user on first connect.
func (h *AuthHandler) Challenge(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !chain.IsValidAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}
	user, err := h.userRepo.GetOrCreate(req.WalletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue challenge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": challengeMessage(user.Nonce)})
}

// Verify handles POST /auth/verify — checks the signed challenge, rotates the
// nonce, and returns a token pair.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.userRepo.GetByWallet(req.WalletAddress)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown wallet, request a challenge first"})
		return
	}
	if err := chain.VerifyPersonalSign(user.WalletAddress, challengeMessage(user.Nonce), req.Signature); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		return
	}
	// One challenge, one login.
	if _, err := h.userRepo.RotateNonce(user.WalletAddress); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate nonce"})
		return
	}
	access, err := auth.GenerateAccessToken(&h.cfg.JWT, user.WalletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	refresh, err := auth.GenerateRefreshToken(&h.cfg.JWT, user.WalletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, err := auth.ParseRefreshToken(&h.cfg.JWT, req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	access, err := auth.GenerateAccessToken(&h.cfg.JWT, wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access})
}
