package service

import (
	"context"
	"errors"
	"fmt"
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

// InitiatePaymentInput is a request to collect a mobile-money payment.
type InitiatePaymentInput struct {
	Phone    string
	Amount   decimal.Decimal
	Country  string
	Provider string
	Currency string  // optional; defaults to the country's settlement currency
	UserID   *string // nil for guest payments
}

type InitiatePaymentResult struct {
	TransactionID string
	Reference     string
	RedirectURL   string
	Instructions  string
}

// PaymentService validates and persists payment intents, then hands them to
// the external processor. The intent row is written before the processor is
// called, so every outbound call has a durable record to reconcile against.
type PaymentService struct {
	cfg      *config.PaymentConfig
	intents  repository.PaymentIntentRepository
	provider payment.Provider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewPaymentService(
	cfg *config.PaymentConfig,
	intents repository.PaymentIntentRepository,
	provider payment.Provider,
	providerTimeout time.Duration,
	logger *zap.Logger,
) *PaymentService {
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	return &PaymentService{
		cfg:      cfg,
		intents:  intents,
		provider: provider,
		timeout:  providerTimeout,
		logger:   logger,
	}
}

func (s *PaymentService) Initiate(ctx context.Context, in InitiatePaymentInput) (*InitiatePaymentResult, error) {
	country, ok := domain.LookupCountry(strings.ToUpper(in.Country))
	if !ok {
		return nil, validationErr("unsupported_country", "country %q is not supported", in.Country)
	}
	providerName := strings.ToUpper(in.Provider)
	if !country.SupportsProvider(providerName) {
		return nil, validationErr("unsupported_provider", "provider %q is not available in %s", in.Provider, country.Code)
	}
	if !in.Amount.IsPositive() || in.Amount.GreaterThan(s.cfg.MaxAmount) {
		return nil, validationErr("invalid_amount", "amount must be greater than 0 and at most %s", s.cfg.MaxAmount.StringFixed(2))
	}
	formattedPhone, err := phone.Format(in.Phone, country.Code)
	if err != nil {
		return nil, validationErr("invalid_phone", "phone number is not valid for %s", country.Code)
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = country.Currency
	}

	intent := &models.PaymentIntent{
		ID:          uuid.New().String(),
		UserID:      in.UserID,
		Amount:      in.Amount,
		Currency:    currency,
		Country:     country.Code,
		Provider:    providerName,
		PhoneNumber: formattedPhone,
		Status:      domain.PaymentInitiated,
		Reference:   newReference(providerName, country.Code),
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		s.logger.Error("payment intent create failed", zap.Error(err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.provider.Collect(callCtx, payment.CollectRequest{
		Reference:   intent.Reference,
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		PhoneNumber: intent.PhoneNumber,
		Country:     intent.Country,
		Provider:    intent.Provider,
		Description: "Payment " + intent.Reference,
	})
	if err != nil {
		s.logger.Error("processor collect failed",
			zap.String("intent_id", intent.ID),
			zap.String("reference", intent.Reference),
			zap.Error(err))
		if _, ferr := s.intents.FailIfNotTerminal(ctx, intent.ID); ferr != nil {
			s.logger.Error("mark intent failed errored", zap.String("intent_id", intent.ID), zap.Error(ferr))
		}
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if _, err := s.intents.MarkPending(ctx, intent.ID, resp.ExternalReference); err != nil {
		s.logger.Error("mark intent pending errored", zap.String("intent_id", intent.ID), zap.Error(err))
		return nil, fmt.Errorf("mark pending: %w", err)
	}
	s.logger.Info("payment initiated",
		zap.String("intent_id", intent.ID),
		zap.String("reference", intent.Reference),
		zap.String("provider", intent.Provider),
		zap.String("amount", intent.Amount.StringFixed(2)))
	return &InitiatePaymentResult{
		TransactionID: intent.ID,
		Reference:     intent.Reference,
		RedirectURL:   resp.RedirectURL,
		Instructions:  resp.Instructions,
	}, nil
}

// GetPayment resolves an intent by id or reference for status queries.
func (s *PaymentService) GetPayment(ctx context.Context, ref string) (*models.PaymentIntent, error) {
	intent, err := s.intents.GetByAnyReference(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return intent, nil
}

func (s *PaymentService) ListForUser(ctx context.Context, userID string, limit int) ([]models.PaymentIntent, error) {
	return s.intents.ListByUser(ctx, userID, limit)
}

// newReference builds a human-shareable payment reference:
// provider prefix, country, UTC timestamp, 32 bits of randomness.
func newReference(provider, country string) string {
	prefix := provider
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s-%s", prefix, country, time.Now().UTC().Format("20060102150405"), suffix)
}
