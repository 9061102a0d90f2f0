package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"affily/internal/models"
	"affily/internal/repository"
	"affily/pkg/chain"

	"gorm.io/gorm"
)

// Pipeline stages of one payout, in execution order. Each stage either
// succeeds or fails the run; the compensation applied per stage is explicit in
// Pay rather than buried in nested error handling.
const (
	StageChainSwitch       = "ChainSwitch"
	StageFlagSet           = "FlagSet"
	StageAffiliateTransfer = "AffiliateTransfer"
	StageUserTransfer      = "UserTransfer"
	StageLedgerUpdate      = "LedgerUpdate"
)

var (
	// ErrAlreadyClaimed means another admin won the conditional flag write.
	ErrAlreadyClaimed = errors.New("conversion log already claimed for payment")
	// ErrLogNotPayable means the log does not exist or is already paid.
	ErrLogNotPayable = errors.New("conversion log not found or already paid")
)

// StageError wraps a failure with the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// PayoutResult reports a completed run. A run that returns a non-nil error
// never moved funds except as its stage implies: an AffiliateTransfer failure
// has been compensated (flag released), while UserTransfer and LedgerUpdate
// failures leave the affiliate paid and are recorded for reconciliation.
type PayoutResult struct {
	LogID           string  `json:"log_id"`
	Amount          float64 `json:"amount"` // per recipient
	TxHashAffiliate string  `json:"tx_hash_affiliate"`
	TxHashUser      string  `json:"tx_hash_user,omitempty"`
	Settled         bool    `json:"settled"`
	LedgerError     string  `json:"ledger_error,omitempty"`
	UserPayError    string  `json:"user_pay_error,omitempty"`
}

// PayoutService runs the reward payment workflow for unpaid conversion logs.
type PayoutService struct {
	conversionRepo *repository.ConversionRepository
	errorRepo      *repository.ErrorLogRepository
	transferer     chain.Transferer
}

func NewPayoutService(
	conversionRepo *repository.ConversionRepository,
	errorRepo *repository.ErrorLogRepository,
	transferer chain.Transferer,
) *PayoutService {
	return &PayoutService{
		conversionRepo: conversionRepo,
		errorRepo:      errorRepo,
		transferer:     transferer,
	}
}

// Pay processes one unpaid conversion log end to end:
//
//  1. ChainSwitch — verify a provider for the log's chain; abort untouched.
//  2. FlagSet — conditional claim of the paid flag before any funds move, so
//     a concurrent admin cannot double-pay.
//  3. AffiliateTransfer — native (fixed 21000 gas) or ERC-20. On failure the
//     claim is released and the log returns to the unpaid pool.
//  4. UserTransfer — only when a user wallet is attached; the amount is split
//     in half. On failure the flag is NOT reverted (the affiliate was paid);
//     an error record is written and the sentinel user hash is stored.
//  5. LedgerUpdate — aggregates, payment transaction, log stamps, in one DB
//     transaction. On failure an error record is written and the log still
//     leaves the pending view; reconciliation is manual from error_logs.
func (s *PayoutService) Pay(ctx context.Context, logID string) (*PayoutResult, error) {
	unpaid, err := s.conversionRepo.GetUnpaid(logID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotPayable
		}
		return nil, err
	}
	log.Printf("[pay] starting payment process for %s", logID)

	if err := s.transferer.EnsureChain(ctx, unpaid.SelectedChainID); err != nil {
		log.Printf("[pay] %s: chain switch failed: %v", logID, err)
		return nil, &StageError{Stage: StageChainSwitch, Err: err}
	}

	claimed, err := s.conversionRepo.ClaimPaid(logID)
	if err != nil {
		return nil, &StageError{Stage: StageFlagSet, Err: err}
	}
	if !claimed {
		return nil, &StageError{Stage: StageFlagSet, Err: ErrAlreadyClaimed}
	}

	// Half each when a referred user shares the reward, full otherwise.
	payoutAmount := unpaid.Amount
	if unpaid.UserWalletAddress != nil {
		payoutAmount = unpaid.Amount / 2
	}

	txHashAffiliate, err := s.transfer(ctx, unpaid, unpaid.AffiliateWallet, payoutAmount)
	if err != nil {
		log.Printf("[pay] %s: affiliate transfer failed, releasing claim: %v", logID, err)
		if relErr := s.conversionRepo.ReleasePaid(logID); relErr != nil {
			log.Printf("[pay] %s: claim release failed, log stuck paid: %v", logID, relErr)
		}
		return nil, &StageError{Stage: StageAffiliateTransfer, Err: err}
	}

	result := &PayoutResult{
		LogID:           logID,
		Amount:          payoutAmount,
		TxHashAffiliate: txHashAffiliate,
	}

	var txHashUser *string
	if unpaid.UserWalletAddress != nil {
		hash, err := s.transfer(ctx, unpaid, *unpaid.UserWalletAddress, payoutAmount)
		if err != nil {
			// Affiliate already paid: no revert. Record for reconciliation.
			log.Printf("[pay] %s: user transfer failed: %v", logID, err)
			if logErr := s.errorRepo.Log(
				models.ErrorTypeUserPayment,
				fmt.Sprintf("Failed to transfer tokens to user: %v", err),
				userPaymentMetadata(unpaid, txHashAffiliate),
			); logErr != nil {
				log.Printf("[pay] %s: error record write failed: %v", logID, logErr)
			}
			hash = models.UserTxHashError
			result.UserPayError = err.Error()
		}
		txHashUser = &hash
		result.TxHashUser = hash
	}

	if err := s.conversionRepo.SettlePayment(
		unpaid.ProjectID, unpaid.ReferralID, logID,
		payoutAmount, txHashAffiliate, txHashUser, unpaid.Timestamp,
	); err != nil {
		// Known inconsistency: the log stays flagged paid and leaves the
		// pending view even though the ledger write failed. The error record
		// is the reconciliation trail.
		log.Printf("[pay] %s: ledger update failed after payment: %v", logID, err)
		if logErr := s.errorRepo.Log(
			models.ErrorTypeLedgerAfterPayment,
			fmt.Sprintf("Failed to update ledger: %v", err),
			userPaymentMetadata(unpaid, txHashAffiliate),
		); logErr != nil {
			log.Printf("[pay] %s: error record write failed: %v", logID, logErr)
		}
		result.LedgerError = err.Error()
		return result, nil
	}

	result.Settled = true
	log.Printf("[pay] payment processed for %s (affiliate tx %s)", logID, txHashAffiliate)
	return result, nil
}

func (s *PayoutService) transfer(ctx context.Context, unpaid *models.UnpaidConversionLog, to string, amount float64) (string, error) {
	if strings.EqualFold(unpaid.SelectedTokenAddress, chain.ZeroAddress) {
		return s.transferer.TransferNative(ctx, unpaid.SelectedChainID, to, amount)
	}
	return s.transferer.TransferToken(ctx, unpaid.SelectedChainID, unpaid.SelectedTokenAddress, to, amount)
}

func userPaymentMetadata(unpaid *models.UnpaidConversionLog, txHashAffiliate string) map[string]interface{} {
	return map[string]interface{}{
		"logId":                    unpaid.LogID,
		"referralId":               unpaid.ReferralID,
		"projectId":                unpaid.ProjectID,
		"amount":                   unpaid.Amount,
		"affiliateWallet":          unpaid.AffiliateWallet,
		"userWalletAddress":        unpaid.UserWalletAddress,
		"selectedTokenAddress":     unpaid.SelectedTokenAddress,
		"selectedChainId":          unpaid.SelectedChainID,
		"transactionHashAffiliate": txHashAffiliate,
	}
}

// TokenOutstanding is the unpaid total for one token on one chain.
type TokenOutstanding struct {
	TokenAddress string  `json:"token_address"`
	ChainID      int64   `json:"chain_id"`
	Amount       float64 `json:"amount"`
}

// SummarizeTokens recomputes the per-token outstanding amounts from the
// current unpaid set. Native-token entries are keyed per chain since the zero
// address is shared across chains.
func SummarizeTokens(logs []models.UnpaidConversionLog) map[string]TokenOutstanding {
	summary := make(map[string]TokenOutstanding)
	for _, l := range logs {
		key := l.SelectedTokenAddress
		if strings.EqualFold(l.SelectedTokenAddress, chain.ZeroAddress) {
			key = fmt.Sprintf("%s-%d", chain.ZeroAddress, l.SelectedChainID)
		}
		entry, ok := summary[key]
		if !ok {
			entry = TokenOutstanding{TokenAddress: l.SelectedTokenAddress, ChainID: l.SelectedChainID}
		}
		entry.Amount += l.Amount
		summary[key] = entry
	}
	return summary
}
