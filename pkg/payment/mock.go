package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MockProvider simulates the processor for development and tests: a short
// latency, then a deterministic synthetic reference derived from the request
// reference, so repeated runs are reproducible.
type MockProvider struct {
	Latency time.Duration
}

func NewMockProvider() *MockProvider {
	return &MockProvider{Latency: 50 * time.Millisecond}
}

func (m *MockProvider) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Latency):
		return nil
	}
}

func syntheticRef(prefix, reference string) string {
	sum := sha256.Sum256([]byte(reference))
	return prefix + "_" + hex.EncodeToString(sum[:8])
}

func (m *MockProvider) Collect(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &CollectResponse{
		ExternalReference: syntheticRef("mock", req.Reference),
		Status:            "pending",
		Instructions:      "Mock payment: approve the prompt on " + req.PhoneNumber + ".",
	}, nil
}

func (m *MockProvider) Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return &PayoutResponse{
		ExternalReference: syntheticRef("mockpo", req.Reference),
		Status:            "completed",
		TransactionHash:   syntheticRef("0x", req.Reference),
	}, nil
}
