package repository

import (
	"context"
	"errors"
	"time"

	"pesaflow/internal/domain"
	"pesaflow/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrDuplicateReference  = errors.New("ledger entry already exists for reference")
	ErrWalletInactive      = errors.New("wallet is not active")
)

// LedgerEntry describes one economic event to book against a wallet.
type LedgerEntry struct {
	UserID      string
	Currency    string
	Amount      decimal.Decimal // positive magnitude; sign applied by type
	Type        string          // DEPOSIT, WITHDRAWAL, REFUND
	Status      string          // PENDING, COMPLETED
	Reference   string
	Description string
	Metadata    string
}

// LedgerView reads the ledger from inside a debit transaction, after the
// wallet row lock has been taken. Same-user debits serialize on that lock, so
// a rolling-limit check through the view sees every prior reservation.
type LedgerView interface {
	// WithdrawalTotalSince returns the gross amount of WITHDRAWAL entries
	// booked at or after since that carry no compensating REFUND.
	WithdrawalTotalSince(since time.Time) (decimal.Decimal, error)
}

// WalletRepository owns all balance mutation. Credit and Debit run the balance
// update and the ledger insert in one database transaction under a row lock,
// so a wallet can never be mutated without a matching transaction record.
type WalletRepository interface {
	GetByUserAndCurrency(ctx context.Context, userID, currency string) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, userID, currency string) (*models.Wallet, error)
	Credit(ctx context.Context, entry LedgerEntry) (*models.WalletTransaction, error)
	Debit(ctx context.Context, entry LedgerEntry) (*models.WalletTransaction, error)
	DebitGuarded(ctx context.Context, entry LedgerEntry, guard func(LedgerView) error) (*models.WalletTransaction, error)
	FinalizeTransaction(ctx context.Context, reference, txnType, status string) error
	HasTransaction(ctx context.Context, reference, txnType string) (bool, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error)
	SumCompleted(ctx context.Context, walletID string) (decimal.Decimal, error)
}

type gormWalletRepo struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &gormWalletRepo{db: db}
}

func (r *gormWalletRepo) GetByUserAndCurrency(ctx context.Context, userID, currency string) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *gormWalletRepo) GetOrCreate(ctx context.Context, userID, currency string) (*models.Wallet, error) {
	w, err := r.GetByUserAndCurrency(ctx, userID, currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w = &models.Wallet{
		ID:       uuid.New().String(),
		UserID:   userID,
		Currency: currency,
		Balance:  decimal.Zero,
		IsActive: true,
	}
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		// Concurrent first credit for the same (user, currency): fall back to
		// the row the other request created.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetByUserAndCurrency(ctx, userID, currency)
		}
		return nil, err
	}
	return w, nil
}

// Credit increases the balance and appends a positive ledger entry.
func (r *gormWalletRepo) Credit(ctx context.Context, entry LedgerEntry) (*models.WalletTransaction, error) {
	return r.apply(ctx, entry, entry.Amount, nil)
}

// Debit decreases the balance and appends a negative ledger entry. Fails
// closed when the locked balance is insufficient.
func (r *gormWalletRepo) Debit(ctx context.Context, entry LedgerEntry) (*models.WalletTransaction, error) {
	return r.apply(ctx, entry, entry.Amount.Neg(), nil)
}

// DebitGuarded is Debit with a check that runs between taking the wallet row
// lock and booking the entry. A guard error aborts the transaction with
// nothing written.
func (r *gormWalletRepo) DebitGuarded(ctx context.Context, entry LedgerEntry, guard func(LedgerView) error) (*models.WalletTransaction, error) {
	return r.apply(ctx, entry, entry.Amount.Neg(), guard)
}

func (r *gormWalletRepo) apply(ctx context.Context, entry LedgerEntry, delta decimal.Decimal, guard func(LedgerView) error) (*models.WalletTransaction, error) {
	if _, err := r.GetOrCreate(ctx, entry.UserID, entry.Currency); err != nil {
		return nil, err
	}
	var txn *models.WalletTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w models.Wallet
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND currency = ?", entry.UserID, entry.Currency).
			First(&w).Error; err != nil {
			return err
		}
		if !w.IsActive {
			return ErrWalletInactive
		}
		if guard != nil {
			if err := guard(&txLedgerView{tx: tx, userID: entry.UserID}); err != nil {
				return err
			}
		}
		newBalance := w.Balance.Add(delta)
		if newBalance.IsNegative() {
			return ErrInsufficientBalance
		}
		txn = &models.WalletTransaction{
			ID:          uuid.New().String(),
			WalletID:    w.ID,
			UserID:      entry.UserID,
			Type:        entry.Type,
			Amount:      delta,
			Currency:    entry.Currency,
			Description: entry.Description,
			Reference:   entry.Reference,
			Status:      entry.Status,
			Metadata:    entry.Metadata,
		}
		if err := tx.Create(txn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReference
			}
			return err
		}
		return tx.Model(&models.Wallet{}).Where("id = ?", w.ID).
			Update("balance", newBalance).Error
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// txLedgerView computes rolling withdrawal exposure from the ledger itself.
// Reservations are booked in the same transaction that moves the balance, so
// under the wallet row lock the total cannot miss a concurrent reservation.
// Rejected and failed withdrawals drop out through their REFUND entry.
type txLedgerView struct {
	tx     *gorm.DB
	userID string
}

func (v *txLedgerView) WithdrawalTotalSince(since time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := v.tx.Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(-amount), 0) AS total").
		Where("user_id = ? AND type = ? AND created_at >= ?", v.userID, domain.TxnWithdrawal, since).
		Where("NOT EXISTS (SELECT 1 FROM wallet_transactions r WHERE r.reference = wallet_transactions.reference AND r.type = ?)", domain.TxnRefund).
		Scan(&result).Error
	return result.Total, err
}

// FinalizeTransaction moves a reserved ledger entry to its terminal status
// (COMPLETED or CANCELLED) once the withdrawal it backs resolves.
func (r *gormWalletRepo) FinalizeTransaction(ctx context.Context, reference, txnType, status string) error {
	return r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("reference = ? AND type = ?", reference, txnType).
		Update("status", status).Error
}

func (r *gormWalletRepo) HasTransaction(ctx context.Context, reference, txnType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("reference = ? AND type = ?", reference, txnType).
		Count(&count).Error
	return count > 0, err
}

func (r *gormWalletRepo) ListTransactions(ctx context.Context, userID string, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var txns []models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// SumCompleted returns the signed sum of COMPLETED ledger entries for a
// wallet. Balance conservation means this always equals the wallet balance
// once reserved entries resolve.
func (r *gormWalletRepo) SumCompleted(ctx context.Context, walletID string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("wallet_id = ? AND status = ?", walletID, domain.TxnStatusCompleted).
		Scan(&result).Error
	return result.Total, err
}
