package domain

const (
	RoleCustomer = "CUSTOMER"
	RoleSupplier = "SUPPLIER"
	RoleAdmin    = "ADMIN"
)

// PaymentIntent statuses. Confirmed and failed are terminal.
const (
	PaymentInitiated = "initiated"
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

// Wallet transaction types.
const (
	TxnDeposit    = "DEPOSIT"
	TxnWithdrawal = "WITHDRAWAL"
	TxnRefund     = "REFUND"
)

// Wallet transaction statuses.
const (
	TxnStatusPending   = "PENDING"
	TxnStatusCompleted = "COMPLETED"
	TxnStatusCancelled = "CANCELLED"
)

// Withdrawal request statuses.
const (
	WithdrawalRequested  = "requested"
	WithdrawalApproved   = "approved"
	WithdrawalRejected   = "rejected"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalFailed     = "failed"
)

// Withdrawal methods.
const (
	MethodCrypto      = "crypto"
	MethodMobileMoney = "mobile_money"
	MethodBank        = "bank"
)

// IsTerminalPaymentStatus reports whether a payment intent can no longer move.
func IsTerminalPaymentStatus(status string) bool {
	return status == PaymentConfirmed || status == PaymentFailed
}
