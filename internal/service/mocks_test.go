package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"pesaflow/internal/domain"
	"pesaflow/internal/models"
	"pesaflow/internal/repository"
	"pesaflow/pkg/payment"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ---- in-memory payment intent repo ----

type memIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*models.PaymentIntent
	err     error
}

func newMemIntentRepo() *memIntentRepo {
	return &memIntentRepo{intents: make(map[string]*models.PaymentIntent)}
}

func (r *memIntentRepo) Create(_ context.Context, p *models.PaymentIntent) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.intents[p.ID] = &cp
	return nil
}

func (r *memIntentRepo) GetByID(_ context.Context, id string) (*models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.intents[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memIntentRepo) GetByAnyReference(_ context.Context, ref string) (*models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.intents {
		if p.ID == ref || p.Reference == ref || p.ExternalReference == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memIntentRepo) MarkPending(_ context.Context, id, externalRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || domain.IsTerminalPaymentStatus(p.Status) {
		return false, nil
	}
	p.Status = domain.PaymentPending
	if externalRef != "" {
		p.ExternalReference = externalRef
	}
	return true, nil
}

func (r *memIntentRepo) ConfirmIfNotTerminal(_ context.Context, id, externalRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || domain.IsTerminalPaymentStatus(p.Status) {
		return false, nil
	}
	p.Status = domain.PaymentConfirmed
	if externalRef != "" {
		p.ExternalReference = externalRef
	}
	return true, nil
}

func (r *memIntentRepo) FailIfNotTerminal(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok || domain.IsTerminalPaymentStatus(p.Status) {
		return false, nil
	}
	p.Status = domain.PaymentFailed
	return true, nil
}

func (r *memIntentRepo) ListByUser(_ context.Context, userID string, _ int) ([]models.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentIntent
	for _, p := range r.intents {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ---- in-memory wallet repo ----

type memWalletRepo struct {
	mu        sync.Mutex
	balances  map[string]decimal.Decimal // userID|currency
	txns      []models.WalletTransaction
	creditErr error
	debitErr  error
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{balances: make(map[string]decimal.Decimal)}
}

func walletKey(userID, currency string) string { return userID + "|" + currency }

func (r *memWalletRepo) setBalance(userID, currency string, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[walletKey(userID, currency)] = amount
}

func (r *memWalletRepo) balance(userID, currency string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[walletKey(userID, currency)]
}

func (r *memWalletRepo) transactions() []models.WalletTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.WalletTransaction, len(r.txns))
	copy(out, r.txns)
	return out
}

func (r *memWalletRepo) GetByUserAndCurrency(_ context.Context, userID, currency string) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[walletKey(userID, currency)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Wallet{
		ID:       "wallet-" + userID,
		UserID:   userID,
		Currency: currency,
		Balance:  b,
		IsActive: true,
	}, nil
}

func (r *memWalletRepo) GetOrCreate(ctx context.Context, userID, currency string) (*models.Wallet, error) {
	if w, err := r.GetByUserAndCurrency(ctx, userID, currency); err == nil {
		return w, nil
	}
	r.setBalance(userID, currency, decimal.Zero)
	return r.GetByUserAndCurrency(ctx, userID, currency)
}

func (r *memWalletRepo) seedTxn(txn models.WalletTransaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns = append(r.txns, txn)
}

func (r *memWalletRepo) apply(entry repository.LedgerEntry, delta decimal.Decimal) (*models.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(entry, delta)
}

func (r *memWalletRepo) applyLocked(entry repository.LedgerEntry, delta decimal.Decimal) (*models.WalletTransaction, error) {
	for _, t := range r.txns {
		if t.Reference == entry.Reference && t.Type == entry.Type {
			return nil, repository.ErrDuplicateReference
		}
	}
	key := walletKey(entry.UserID, entry.Currency)
	next := r.balances[key].Add(delta)
	if next.IsNegative() {
		return nil, repository.ErrInsufficientBalance
	}
	r.balances[key] = next
	txn := models.WalletTransaction{
		ID:        entry.Reference + "-" + entry.Type,
		WalletID:  "wallet-" + entry.UserID,
		UserID:    entry.UserID,
		Type:      entry.Type,
		Amount:    delta,
		Currency:  entry.Currency,
		Reference: entry.Reference,
		Status:    entry.Status,
		CreatedAt: time.Now(),
	}
	r.txns = append(r.txns, txn)
	return &txn, nil
}

func (r *memWalletRepo) Credit(_ context.Context, entry repository.LedgerEntry) (*models.WalletTransaction, error) {
	if r.creditErr != nil {
		return nil, r.creditErr
	}
	return r.apply(entry, entry.Amount)
}

func (r *memWalletRepo) Debit(_ context.Context, entry repository.LedgerEntry) (*models.WalletTransaction, error) {
	if r.debitErr != nil {
		return nil, r.debitErr
	}
	return r.apply(entry, entry.Amount.Neg())
}

// DebitGuarded mirrors the real repository: the guard sees the ledger as it
// stands when the debit runs, and a guard error books nothing.
func (r *memWalletRepo) DebitGuarded(_ context.Context, entry repository.LedgerEntry, guard func(repository.LedgerView) error) (*models.WalletTransaction, error) {
	if r.debitErr != nil {
		return nil, r.debitErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if guard != nil {
		if err := guard(&memLedgerView{r: r, userID: entry.UserID}); err != nil {
			return nil, err
		}
	}
	return r.applyLocked(entry, entry.Amount.Neg())
}

type memLedgerView struct {
	r      *memWalletRepo
	userID string
}

func (v *memLedgerView) WithdrawalTotalSince(since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, t := range v.r.txns {
		if t.UserID != v.userID || t.Type != domain.TxnWithdrawal || t.CreatedAt.Before(since) {
			continue
		}
		refunded := false
		for _, u := range v.r.txns {
			if u.Reference == t.Reference && u.Type == domain.TxnRefund {
				refunded = true
				break
			}
		}
		if !refunded {
			total = total.Add(t.Amount.Neg())
		}
	}
	return total, nil
}

func (r *memWalletRepo) FinalizeTransaction(_ context.Context, reference, txnType, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.txns {
		if r.txns[i].Reference == reference && r.txns[i].Type == txnType {
			r.txns[i].Status = status
		}
	}
	return nil
}

func (r *memWalletRepo) HasTransaction(_ context.Context, reference, txnType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.txns {
		if t.Reference == reference && t.Type == txnType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memWalletRepo) ListTransactions(_ context.Context, userID string, _ int) ([]models.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WalletTransaction
	for _, t := range r.txns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memWalletRepo) SumCompleted(_ context.Context, walletID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, t := range r.txns {
		if t.WalletID == walletID && t.Status == domain.TxnStatusCompleted {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

// ---- in-memory withdrawal repo ----

type memWithdrawalRepo struct {
	mu          sync.Mutex
	withdrawals map[string]*models.WithdrawalRequest
	createErr   error

	// rollingOverride, when set, is returned by RollingTotal regardless of
	// recorded rows. Simulates a read taken before a concurrent request's row
	// landed.
	rollingOverride *decimal.Decimal
}

func newMemWithdrawalRepo() *memWithdrawalRepo {
	return &memWithdrawalRepo{withdrawals: make(map[string]*models.WithdrawalRequest)}
}

func (r *memWithdrawalRepo) Create(_ context.Context, w *models.WithdrawalRequest) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	cp.CreatedAt = time.Now()
	r.withdrawals[w.ID] = &cp
	return nil
}

func (r *memWithdrawalRepo) GetByID(_ context.Context, id string) (*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.withdrawals[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memWithdrawalRepo) TransitionStatus(_ context.Context, id, from, to string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	if v, ok := updates["admin_notes"].(string); ok {
		w.AdminNotes = v
	}
	if v, ok := updates["processed_by"].(string); ok {
		w.ProcessedBy = &v
	}
	if v, ok := updates["transaction_hash"].(string); ok {
		w.TransactionHash = v
	}
	if v, ok := updates["processed_at"].(*time.Time); ok {
		w.ProcessedAt = v
	}
	return true, nil
}

// seed stores a request as-is, preserving CreatedAt.
func (r *memWithdrawalRepo) seed(w *models.WithdrawalRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.withdrawals[w.ID] = &cp
}

func (r *memWithdrawalRepo) RollingTotal(_ context.Context, userID string, since time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rollingOverride != nil {
		return *r.rollingOverride, nil
	}
	total := decimal.Zero
	for _, w := range r.withdrawals {
		if w.UserID != userID || w.CreatedAt.Before(since) {
			continue
		}
		if w.Status == domain.WithdrawalRejected || w.Status == domain.WithdrawalFailed {
			continue
		}
		total = total.Add(w.Amount)
	}
	return total, nil
}

func (r *memWithdrawalRepo) ListByUser(_ context.Context, userID string, _ int) ([]models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WithdrawalRequest
	for _, w := range r.withdrawals {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *memWithdrawalRepo) ListByStatus(_ context.Context, status string, _ int) ([]models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WithdrawalRequest
	for _, w := range r.withdrawals {
		if w.Status == status {
			out = append(out, *w)
		}
	}
	return out, nil
}

// ---- simple mocks ----

type mockUserRepo struct {
	users map[string]*models.User
}

func (r *mockUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockWebhookLogRepo struct {
	mu   sync.Mutex
	logs []models.WebhookLog
	err  error
}

func (r *mockWebhookLogRepo) Create(_ context.Context, l *models.WebhookLog) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *l)
	return nil
}

func (r *mockWebhookLogRepo) ListByIntent(_ context.Context, paymentIntentID string) ([]models.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WebhookLog
	for _, l := range r.logs {
		if l.PaymentIntentID != nil && *l.PaymentIntentID == paymentIntentID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (r *mockNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *mockNotificationRepo) ListForUser(_ context.Context, userID string, _ int) ([]models.Notification, error) {
	return nil, nil
}

func (r *mockNotificationRepo) ListAdmin(_ context.Context, _ int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID == nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// ---- mock payment processor ----

var errProviderDown = errors.New("processor unavailable")

type mockProcessor struct {
	mu          sync.Mutex
	collectErr  error
	payoutErr   error
	collectResp *payment.CollectResponse
	payoutResp  *payment.PayoutResponse
	collected   []payment.CollectRequest
	paidOut     []payment.PayoutRequest
}

func (m *mockProcessor) Collect(_ context.Context, req payment.CollectRequest) (*payment.CollectResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collected = append(m.collected, req)
	if m.collectErr != nil {
		return nil, m.collectErr
	}
	if m.collectResp != nil {
		return m.collectResp, nil
	}
	return &payment.CollectResponse{
		ExternalReference: "ext-" + req.Reference,
		Status:            "pending",
		Instructions:      "Approve the prompt on your phone",
	}, nil
}

func (m *mockProcessor) Payout(_ context.Context, req payment.PayoutRequest) (*payment.PayoutResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paidOut = append(m.paidOut, req)
	if m.payoutErr != nil {
		return nil, m.payoutErr
	}
	if m.payoutResp != nil {
		return m.payoutResp, nil
	}
	return &payment.PayoutResponse{
		ExternalReference: "payout-" + req.Reference,
		Status:            "completed",
		TransactionHash:   "0xabc123",
	}, nil
}
