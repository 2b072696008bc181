package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"pesaflow/config"
	"pesaflow/internal/domain"
	"pesaflow/internal/models"
	"pesaflow/internal/repository"
	"pesaflow/pkg/payment"
	"pesaflow/pkg/phone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WithdrawalInput is a user's request to move funds out of their wallet.
type WithdrawalInput struct {
	UserID             string
	Amount             decimal.Decimal
	ToWallet           string
	Currency           string
	Method             string
	DestinationDetails json.RawMessage
}

type WithdrawalResult struct {
	WithdrawalID     string
	Status           string
	AutoApproved     bool
	FeeAmount        decimal.Decimal
	NetAmount        decimal.Decimal
	ProcessingWindow string // set on the manual path
}

// WithdrawalService validates requests against balance and rolling limits,
// reserves funds at creation, and drives the approval state machine:
// requested -> approved -> processing -> completed|failed, requested ->
// rejected. Rejection and payout failure restore funds through a REFUND
// ledger entry, so the ledger always reconciles to the balance once a
// request resolves.
type WithdrawalService struct {
	cfg         *config.WithdrawalConfig
	withdrawals repository.WithdrawalRepository
	wallets     repository.WalletRepository
	users       repository.UserRepository
	provider    payment.Provider
	notifier    *NotificationService
	timeout     time.Duration
	logger      *zap.Logger
}

func NewWithdrawalService(
	cfg *config.WithdrawalConfig,
	withdrawals repository.WithdrawalRepository,
	wallets repository.WalletRepository,
	users repository.UserRepository,
	provider payment.Provider,
	notifier *NotificationService,
	providerTimeout time.Duration,
	logger *zap.Logger,
) *WithdrawalService {
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	return &WithdrawalService{
		cfg:         cfg,
		withdrawals: withdrawals,
		wallets:     wallets,
		users:       users,
		provider:    provider,
		notifier:    notifier,
		timeout:     providerTimeout,
		logger:      logger,
	}
}

func (s *WithdrawalService) Request(ctx context.Context, in WithdrawalInput) (*WithdrawalResult, error) {
	method := strings.ToLower(in.Method)
	if method == "" {
		method = domain.MethodMobileMoney
	}
	if method != domain.MethodCrypto && method != domain.MethodMobileMoney && method != domain.MethodBank {
		return nil, validationErr("invalid_method", "withdrawal method %q is not supported", in.Method)
	}
	if in.Amount.LessThan(s.cfg.MinAmount) || in.Amount.GreaterThan(s.cfg.MaxAmount) {
		return nil, validationErr("invalid_amount", "amount must be between %s and %s",
			s.cfg.MinAmount.StringFixed(2), s.cfg.MaxAmount.StringFixed(2))
	}
	if in.ToWallet == "" {
		return nil, validationErr("missing_destination", "to_wallet is required")
	}
	destination, destJSON, err := validateDestination(method, in.DestinationDetails, in.ToWallet)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "USD"
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.checkLimits(ctx, user, in.Amount); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.GetByUserAndCurrency(ctx, in.UserID, currency)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	if wallet.Balance.LessThan(in.Amount) {
		return nil, ErrInsufficientFunds
	}

	fee := s.fee(method, in.Amount)
	net := in.Amount.Sub(fee)
	autoApproved := user.AutoApproveWithdrawals && in.Amount.LessThanOrEqual(s.cfg.AutoApproveThreshold)

	withdrawalID := uuid.New().String()
	reserveStatus := domain.TxnStatusPending
	if autoApproved {
		reserveStatus = domain.TxnStatusCompleted
	}
	daily, monthly := s.limitsFor(user)
	// Reserve the gross amount now, whatever the approval path. The debit is
	// atomic with its ledger entry and fails closed on a racing overdraft. The
	// rolling limits are rechecked under the wallet row lock, against the
	// ledger written by that same lock, so two concurrent requests cannot
	// both pass on a total that misses the other's reservation.
	if _, err := s.wallets.DebitGuarded(ctx, repository.LedgerEntry{
		UserID:      in.UserID,
		Currency:    currency,
		Amount:      in.Amount,
		Type:        domain.TxnWithdrawal,
		Status:      reserveStatus,
		Reference:   withdrawalID,
		Description: "Withdrawal to " + method + " destination",
	}, func(view repository.LedgerView) error {
		now := time.Now()
		dayTotal, err := view.WithdrawalTotalSince(now.Add(-24 * time.Hour))
		if err != nil {
			return fmt.Errorf("daily total: %w", err)
		}
		monthTotal, err := view.WithdrawalTotalSince(now.Add(-30 * 24 * time.Hour))
		if err != nil {
			return fmt.Errorf("monthly total: %w", err)
		}
		return compareLimits(in.Amount, dayTotal, monthTotal, daily, monthly)
	}); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrInsufficientFunds
		}
		if errors.Is(err, ErrLimitExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve funds: %w", err)
	}

	w := &models.WithdrawalRequest{
		ID:                 withdrawalID,
		UserID:             in.UserID,
		Amount:             in.Amount,
		ToWallet:           in.ToWallet,
		Currency:           currency,
		WithdrawalMethod:   method,
		DestinationDetails: destJSON,
		FeeAmount:          fee,
		NetAmount:          net,
		Status:             domain.WithdrawalRequested,
		AutoApproved:       autoApproved,
	}
	if err := s.withdrawals.Create(ctx, w); err != nil {
		// The reservation exists but the request row does not: compensate.
		s.refund(ctx, w, "withdrawal record creation failed")
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}

	if !autoApproved {
		s.notifier.NotifyAdminWithdrawalReview(ctx, withdrawalID, in.UserID, in.Amount, currency)
		s.logger.Info("withdrawal queued for review",
			zap.String("withdrawal_id", withdrawalID),
			zap.String("user_id", in.UserID),
			zap.String("amount", in.Amount.StringFixed(2)))
		return &WithdrawalResult{
			WithdrawalID:     withdrawalID,
			Status:           domain.WithdrawalRequested,
			AutoApproved:     false,
			FeeAmount:        fee,
			NetAmount:        net,
			ProcessingWindow: s.cfg.ProcessingWindow,
		}, nil
	}

	now := time.Now()
	if _, err := s.withdrawals.TransitionStatus(ctx, withdrawalID,
		domain.WithdrawalRequested, domain.WithdrawalApproved,
		map[string]interface{}{"processed_at": &now}); err != nil {
		return nil, err
	}
	w.Status = domain.WithdrawalApproved
	if err := s.executePayout(ctx, w, destination); err != nil {
		return &WithdrawalResult{
			WithdrawalID: withdrawalID,
			Status:       domain.WithdrawalFailed,
			AutoApproved: true,
			FeeAmount:    fee,
			NetAmount:    net,
		}, err
	}
	return &WithdrawalResult{
		WithdrawalID: withdrawalID,
		Status:       domain.WithdrawalCompleted,
		AutoApproved: true,
		FeeAmount:    fee,
		NetAmount:    net,
	}, nil
}

// Approve moves a manually-reviewed request through payout. Valid only from
// requested; a second decision returns ErrConflict.
func (s *WithdrawalService) Approve(ctx context.Context, withdrawalID, adminID, notes string) (*models.WithdrawalRequest, error) {
	w, err := s.getRequest(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	moved, err := s.withdrawals.TransitionStatus(ctx, withdrawalID,
		domain.WithdrawalRequested, domain.WithdrawalApproved,
		map[string]interface{}{
			"processed_by": adminID,
			"processed_at": &now,
			"admin_notes":  notes,
		})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrConflict
	}
	w.Status = domain.WithdrawalApproved
	destination, _, derr := validateDestination(w.WithdrawalMethod, json.RawMessage(w.DestinationDetails), w.ToWallet)
	if derr != nil {
		destination = w.ToWallet
	}
	payoutErr := s.executePayout(ctx, w, destination)
	s.notifier.NotifyWithdrawalDecision(ctx, w.UserID, w.ID, w.Status, notes)
	if payoutErr != nil {
		return w, payoutErr
	}
	return w, nil
}

// Reject refuses a pending request and restores the reserved funds. Valid
// only from requested.
func (s *WithdrawalService) Reject(ctx context.Context, withdrawalID, adminID, notes string) (*models.WithdrawalRequest, error) {
	w, err := s.getRequest(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	moved, err := s.withdrawals.TransitionStatus(ctx, withdrawalID,
		domain.WithdrawalRequested, domain.WithdrawalRejected,
		map[string]interface{}{
			"processed_by": adminID,
			"processed_at": &now,
			"admin_notes":  notes,
		})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrConflict
	}
	w.Status = domain.WithdrawalRejected
	w.AdminNotes = notes
	s.refund(ctx, w, "withdrawal rejected")
	s.notifier.NotifyWithdrawalDecision(ctx, w.UserID, w.ID, domain.WithdrawalRejected, notes)
	s.logger.Info("withdrawal rejected",
		zap.String("withdrawal_id", w.ID),
		zap.String("admin_id", adminID))
	return w, nil
}

// ResolvePayout settles a processing withdrawal from a processor callback.
// Unknown or failed vendor statuses fail the withdrawal and refund; replays
// against an already-settled request are acknowledged without change.
func (s *WithdrawalService) ResolvePayout(ctx context.Context, reference, vendorStatus, transactionHash string) (*models.WithdrawalRequest, error) {
	w, err := s.getRequest(ctx, reference)
	if err != nil {
		return nil, err
	}
	switch w.Status {
	case domain.WithdrawalCompleted, domain.WithdrawalFailed, domain.WithdrawalRejected:
		return w, nil
	}
	if domain.MapVendorStatus(vendorStatus) == domain.PaymentConfirmed {
		now := time.Now()
		moved, err := s.withdrawals.TransitionStatus(ctx, w.ID,
			domain.WithdrawalProcessing, domain.WithdrawalCompleted,
			map[string]interface{}{
				"transaction_hash": transactionHash,
				"processed_at":     &now,
			})
		if err != nil {
			return nil, err
		}
		if !moved {
			return w, nil
		}
		w.Status = domain.WithdrawalCompleted
		w.TransactionHash = transactionHash
		if err := s.wallets.FinalizeTransaction(ctx, w.ID, domain.TxnWithdrawal, domain.TxnStatusCompleted); err != nil {
			s.logger.Error("finalize reservation failed", zap.String("withdrawal_id", w.ID), zap.Error(err))
		}
		return w, nil
	}
	moved, err := s.withdrawals.TransitionStatus(ctx, w.ID,
		domain.WithdrawalProcessing, domain.WithdrawalFailed, nil)
	if err != nil {
		return nil, err
	}
	if moved {
		w.Status = domain.WithdrawalFailed
		s.refund(ctx, w, "payout reported failed")
	}
	return w, nil
}

func (s *WithdrawalService) Get(ctx context.Context, withdrawalID string) (*models.WithdrawalRequest, error) {
	return s.getRequest(ctx, withdrawalID)
}

func (s *WithdrawalService) ListForUser(ctx context.Context, userID string, limit int) ([]models.WithdrawalRequest, error) {
	return s.withdrawals.ListByUser(ctx, userID, limit)
}

func (s *WithdrawalService) ListPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	return s.withdrawals.ListByStatus(ctx, domain.WithdrawalRequested, limit)
}

// executePayout runs approved -> processing -> completed|failed. Failure at
// the processor refunds the gross amount.
func (s *WithdrawalService) executePayout(ctx context.Context, w *models.WithdrawalRequest, destination string) error {
	if _, err := s.withdrawals.TransitionStatus(ctx, w.ID,
		domain.WithdrawalApproved, domain.WithdrawalProcessing, nil); err != nil {
		return err
	}
	w.Status = domain.WithdrawalProcessing

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.provider.Payout(callCtx, payment.PayoutRequest{
		Reference:   w.ID,
		Amount:      w.NetAmount,
		Currency:    w.Currency,
		Method:      w.WithdrawalMethod,
		Destination: destination,
		Description: "Withdrawal " + w.ID,
	})
	if err != nil {
		s.logger.Error("payout failed",
			zap.String("withdrawal_id", w.ID),
			zap.String("method", w.WithdrawalMethod),
			zap.Error(err))
		if _, terr := s.withdrawals.TransitionStatus(ctx, w.ID,
			domain.WithdrawalProcessing, domain.WithdrawalFailed, nil); terr != nil {
			s.logger.Error("mark withdrawal failed errored", zap.String("withdrawal_id", w.ID), zap.Error(terr))
		}
		w.Status = domain.WithdrawalFailed
		s.refund(ctx, w, "payout failed")
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	now := time.Now()
	if _, err := s.withdrawals.TransitionStatus(ctx, w.ID,
		domain.WithdrawalProcessing, domain.WithdrawalCompleted,
		map[string]interface{}{
			"transaction_hash": resp.TransactionHash,
			"processed_at":     &now,
		}); err != nil {
		return err
	}
	w.Status = domain.WithdrawalCompleted
	w.TransactionHash = resp.TransactionHash
	// Settle the reservation entry so the ledger reconciles.
	if err := s.wallets.FinalizeTransaction(ctx, w.ID, domain.TxnWithdrawal, domain.TxnStatusCompleted); err != nil {
		s.logger.Error("finalize reservation failed", zap.String("withdrawal_id", w.ID), zap.Error(err))
	}
	s.logger.Info("withdrawal completed",
		zap.String("withdrawal_id", w.ID),
		zap.String("external_reference", resp.ExternalReference))
	return nil
}

// refund restores the gross amount after rejection or payout failure. The
// reservation entry settles as COMPLETED and a REFUND entry books the credit,
// so the two net to zero in the ledger.
func (s *WithdrawalService) refund(ctx context.Context, w *models.WithdrawalRequest, reason string) {
	if err := s.wallets.FinalizeTransaction(ctx, w.ID, domain.TxnWithdrawal, domain.TxnStatusCompleted); err != nil {
		s.logger.Error("finalize reservation failed", zap.String("withdrawal_id", w.ID), zap.Error(err))
	}
	if booked, err := s.wallets.HasTransaction(ctx, w.ID, domain.TxnRefund); err == nil && booked {
		// Already compensated by an earlier resolution. Races that slip past
		// this check still land on the unique (reference, type) index below.
		return
	}
	_, err := s.wallets.Credit(ctx, repository.LedgerEntry{
		UserID:      w.UserID,
		Currency:    w.Currency,
		Amount:      w.Amount,
		Type:        domain.TxnRefund,
		Status:      domain.TxnStatusCompleted,
		Reference:   w.ID,
		Description: "Refund: " + reason,
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicateReference) {
		// A debit without its compensating credit must be visible to operators.
		s.logger.Error("refund credit failed",
			zap.String("withdrawal_id", w.ID),
			zap.String("user_id", w.UserID),
			zap.String("amount", w.Amount.StringFixed(2)),
			zap.Error(err))
	}
}

func (s *WithdrawalService) getRequest(ctx context.Context, withdrawalID string) (*models.WithdrawalRequest, error) {
	w, err := s.withdrawals.GetByID(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (s *WithdrawalService) limitsFor(user *models.User) (daily, monthly decimal.Decimal) {
	daily = s.cfg.DefaultDailyLimit
	if user.DailyWithdrawalLimit != nil {
		daily = *user.DailyWithdrawalLimit
	}
	monthly = s.cfg.DefaultMonthlyLimit
	if user.MonthlyWithdrawalLimit != nil {
		monthly = *user.MonthlyWithdrawalLimit
	}
	return daily, monthly
}

func compareLimits(amount, dayTotal, monthTotal, daily, monthly decimal.Decimal) error {
	if dayTotal.Add(amount).GreaterThan(daily) {
		return fmt.Errorf("%w: daily limit %s", ErrLimitExceeded, daily.StringFixed(2))
	}
	if monthTotal.Add(amount).GreaterThan(monthly) {
		return fmt.Errorf("%w: monthly limit %s", ErrLimitExceeded, monthly.StringFixed(2))
	}
	return nil
}

// checkLimits is a cheap rejection against recorded withdrawal requests,
// before any lock is taken. The authoritative check reruns inside the reserve
// transaction.
func (s *WithdrawalService) checkLimits(ctx context.Context, user *models.User, amount decimal.Decimal) error {
	daily, monthly := s.limitsFor(user)
	now := time.Now()
	dayTotal, err := s.withdrawals.RollingTotal(ctx, user.ID, now.Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("daily total: %w", err)
	}
	monthTotal, err := s.withdrawals.RollingTotal(ctx, user.ID, now.Add(-30*24*time.Hour))
	if err != nil {
		return fmt.Errorf("monthly total: %w", err)
	}
	return compareLimits(amount, dayTotal, monthTotal, daily, monthly)
}

func (s *WithdrawalService) fee(method string, amount decimal.Decimal) decimal.Decimal {
	var rate decimal.Decimal
	switch method {
	case domain.MethodCrypto:
		rate = s.cfg.FeeCrypto
	case domain.MethodMobileMoney:
		rate = s.cfg.FeeMobileMoney
	default:
		rate = s.cfg.FeeBank
	}
	return amount.Mul(rate).Round(2)
}

var digitsOnly = regexp.MustCompile(`^\+?\d{10,15}$`)

// validateDestination checks the per-method destination shape and returns the
// payout destination string plus the normalized JSON to store.
func validateDestination(method string, details json.RawMessage, toWallet string) (string, string, error) {
	switch method {
	case domain.MethodCrypto:
		var d models.CryptoDestination
		if len(details) > 0 {
			if err := json.Unmarshal(details, &d); err != nil {
				return "", "", validationErr("invalid_destination", "destination_details is not valid JSON")
			}
		}
		if d.Address == "" {
			d.Address = toWallet
		}
		if len(d.Address) < 20 || len(d.Address) > 128 {
			return "", "", validationErr("invalid_destination", "crypto address must be 20-128 characters")
		}
		out, _ := json.Marshal(d)
		return d.Address, string(out), nil
	case domain.MethodMobileMoney:
		var d models.MobileMoneyDestination
		if len(details) == 0 {
			return "", "", validationErr("invalid_destination", "mobile money withdrawals require destination_details")
		}
		if err := json.Unmarshal(details, &d); err != nil {
			return "", "", validationErr("invalid_destination", "destination_details is not valid JSON")
		}
		if d.PhoneNumber == "" || d.Provider == "" {
			return "", "", validationErr("invalid_destination", "mobile money destination requires phone_number and provider")
		}
		if d.Country != "" {
			formatted, err := phone.Format(d.PhoneNumber, d.Country)
			if err != nil {
				return "", "", validationErr("invalid_destination", "phone number is not valid for %s", d.Country)
			}
			d.PhoneNumber = formatted
		} else if !digitsOnly.MatchString(d.PhoneNumber) {
			return "", "", validationErr("invalid_destination", "phone number must be 10-15 digits")
		}
		out, _ := json.Marshal(d)
		return d.PhoneNumber, string(out), nil
	case domain.MethodBank:
		var d models.BankDestination
		if len(details) == 0 {
			return "", "", validationErr("invalid_destination", "bank withdrawals require destination_details")
		}
		if err := json.Unmarshal(details, &d); err != nil {
			return "", "", validationErr("invalid_destination", "destination_details is not valid JSON")
		}
		if d.AccountName == "" || d.AccountNumber == "" || d.BankName == "" {
			return "", "", validationErr("invalid_destination", "bank destination requires account_name, account_number and bank_name")
		}
		out, _ := json.Marshal(d)
		return d.AccountNumber, string(out), nil
	}
	return "", "", validationErr("invalid_method", "unknown withdrawal method %q", method)
}
