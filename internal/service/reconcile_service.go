package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pesaflow/internal/domain"
	"pesaflow/internal/models"
	"pesaflow/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WebhookPayload is the processor's callback body. Signature verification
// happens at the HTTP edge before this service sees the payload.
type WebhookPayload struct {
	PaymentID       string          `json:"payment_id"`
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	CustomerPhone   string          `json:"customer_phone"`
	Provider        string          `json:"provider"`
	Country         string          `json:"country"`
	Timestamp       int64           `json:"timestamp"`
}

type ReconcileResult struct {
	PaymentID      string
	Status         string
	WalletCredited bool
}

// ReconcileService applies verified webhook events to payment intents and
// credits the wallet exactly once per confirmed payment. The exactly-once
// property rests on two layers: the intent status compare-and-swap (only the
// first confirmation wins) and the ledger's unique (reference, type) index
// (a duplicate credit cannot be inserted even if the CAS were bypassed).
type ReconcileService struct {
	intents  repository.PaymentIntentRepository
	wallets  repository.WalletRepository
	logs     repository.WebhookLogRepository
	notifier *NotificationService
	logger   *zap.Logger
}

func NewReconcileService(
	intents repository.PaymentIntentRepository,
	wallets repository.WalletRepository,
	logs repository.WebhookLogRepository,
	notifier *NotificationService,
	logger *zap.Logger,
) *ReconcileService {
	return &ReconcileService{
		intents:  intents,
		wallets:  wallets,
		logs:     logs,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *ReconcileService) Reconcile(ctx context.Context, payload WebhookPayload) (*ReconcileResult, error) {
	ref := payload.Reference
	if ref == "" {
		ref = payload.PaymentID
	}
	if ref == "" {
		return nil, validationErr("missing_reference", "webhook payload carries no payment reference")
	}

	intent, err := s.intents.GetByAnyReference(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.audit(ctx, nil, payload, "intent_not_found", false, nil)
			return nil, ErrNotFound
		}
		return nil, err
	}

	mapped := domain.MapVendorStatus(payload.Status)
	externalRef := payload.TransactionHash
	if externalRef == "" {
		externalRef = payload.PaymentID
	}

	switch mapped {
	case domain.PaymentConfirmed:
		return s.confirm(ctx, intent, payload, externalRef)
	case domain.PaymentPending, domain.PaymentInitiated:
		if _, err := s.intents.MarkPending(ctx, intent.ID, externalRef); err != nil {
			return nil, err
		}
		s.audit(ctx, intent, payload, "pending", false, nil)
		return &ReconcileResult{PaymentID: intent.ID, Status: domain.PaymentPending}, nil
	default:
		moved, err := s.intents.FailIfNotTerminal(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		outcome := "failed"
		if !moved {
			outcome = "failed_replay_ignored"
		}
		s.audit(ctx, intent, payload, outcome, false, nil)
		return &ReconcileResult{PaymentID: intent.ID, Status: domain.PaymentFailed}, nil
	}
}

func (s *ReconcileService) confirm(ctx context.Context, intent *models.PaymentIntent, payload WebhookPayload, externalRef string) (*ReconcileResult, error) {
	swapped, err := s.intents.ConfirmIfNotTerminal(ctx, intent.ID, externalRef)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Replay of an already-settled intent. The processor retried; ack it
		// without touching the ledger.
		s.audit(ctx, intent, payload, "confirm_replay_ignored", false, nil)
		return &ReconcileResult{PaymentID: intent.ID, Status: domain.PaymentConfirmed, WalletCredited: false}, nil
	}

	if !payload.Amount.IsZero() && !payload.Amount.Equal(intent.Amount) {
		s.logger.Warn("webhook amount differs from intent amount",
			zap.String("intent_id", intent.ID),
			zap.String("intent_amount", intent.Amount.StringFixed(2)),
			zap.String("webhook_amount", payload.Amount.StringFixed(2)))
	}

	if intent.UserID == nil {
		// Guest payment: nothing to credit.
		s.audit(ctx, intent, payload, "confirmed_no_wallet", false, nil)
		return &ReconcileResult{PaymentID: intent.ID, Status: domain.PaymentConfirmed, WalletCredited: false}, nil
	}

	txn, err := s.wallets.Credit(ctx, repository.LedgerEntry{
		UserID:      *intent.UserID,
		Currency:    intent.Currency,
		Amount:      intent.Amount,
		Type:        domain.TxnDeposit,
		Status:      domain.TxnStatusCompleted,
		Reference:   intent.ID,
		Description: "Mobile money deposit " + intent.Reference,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateReference) {
			// Credited by an earlier delivery; the ledger constraint held.
			s.audit(ctx, intent, payload, "credit_already_booked", false, nil)
			return &ReconcileResult{PaymentID: intent.ID, Status: domain.PaymentConfirmed, WalletCredited: false}, nil
		}
		// The intent is confirmed but the ledger credit failed. Reported as an
		// inconsistency for the operator; the processor still gets success so
		// it stops retrying against a terminal intent.
		s.logger.Error("wallet credit failed after confirmation",
			zap.String("intent_id", intent.ID),
			zap.String("user_id", *intent.UserID),
			zap.Error(err))
		s.audit(ctx, intent, payload, "credit_failed", false, nil)
		return &ReconcileResult{PaymentID: intent.ID, Status: domain.PaymentConfirmed, WalletCredited: false}, nil
	}

	s.audit(ctx, intent, payload, "confirmed_credited", true, &txn.WalletID)
	s.notifier.NotifyPaymentConfirmed(ctx, *intent.UserID, intent.Amount, intent.Currency, intent.Reference)
	s.logger.Info("payment confirmed and credited",
		zap.String("intent_id", intent.ID),
		zap.String("wallet_id", txn.WalletID),
		zap.String("amount", intent.Amount.StringFixed(2)))
	return &ReconcileResult{PaymentID: intent.ID, Status: domain.PaymentConfirmed, WalletCredited: true}, nil
}

// audit appends to the webhook log. Audit failures are logged and swallowed:
// the primary state update already committed and its outcome must not depend
// on the audit trail.
func (s *ReconcileService) audit(ctx context.Context, intent *models.PaymentIntent, payload WebhookPayload, outcome string, credited bool, walletID *string) {
	raw, _ := json.Marshal(payload)
	var intentID *string
	if intent != nil {
		intentID = &intent.ID
	}
	err := s.logs.Create(ctx, &models.WebhookLog{
		PaymentIntentID: intentID,
		WebhookType:     "payment",
		Status:          outcome,
		Payload:         string(raw),
		WalletCredited:  credited,
		WalletID:        walletID,
		ProcessedAt:     time.Now(),
	})
	if err != nil {
		s.logger.Warn("webhook audit write failed", zap.String("outcome", outcome), zap.Error(err))
	}
}
