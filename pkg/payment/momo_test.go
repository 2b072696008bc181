package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pesaflow/pkg/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func momoTestServer(t *testing.T) (*httptest.Server, *[]map[string]string) {
	t.Helper()
	var collected []map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/merchants/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Email != "merchant@example.com" || creds.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})
	mux.HandleFunc("/api/v1/transactions/collect", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		collected = append(collected, body)
		json.NewEncoder(w).Encode(map[string]string{
			"uuid":             "ext-uuid-1",
			"order_id":         body["order_id"],
			"status":           "pending",
			"customer_message": "Enter your PIN to approve",
		})
	})
	mux.HandleFunc("/api/v1/transactions/payout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"uuid":             "payout-uuid-1",
			"status":           "processing",
			"transaction_hash": "0xhash",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &collected
}

func TestMomoCollect(t *testing.T) {
	srv, collected := momoTestServer(t)
	p := payment.NewMomoProvider(srv.URL, "merchant@example.com", "s3cret", "https://pay.example.com", 5*time.Second)

	resp, err := p.Collect(context.Background(), payment.CollectRequest{
		Reference:   "MPE-KE-20260830120000-ABCD1234",
		Amount:      decimal.RequireFromString("25.00"),
		Currency:    "KES",
		PhoneNumber: "+254712345678",
		Country:     "KE",
		Provider:    "MPESA",
	})
	require.NoError(t, err)
	assert.Equal(t, "ext-uuid-1", resp.ExternalReference)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "Enter your PIN to approve", resp.Instructions)

	require.Len(t, *collected, 1)
	sent := (*collected)[0]
	assert.Equal(t, "25.00", sent["amount"])
	assert.Equal(t, "+254712345678", sent["customer_phone"])
	assert.Equal(t, "https://pay.example.com/api/v1/webhooks/payment", sent["callback_url"])
}

func TestMomoCollectBadCredentials(t *testing.T) {
	srv, _ := momoTestServer(t)
	p := payment.NewMomoProvider(srv.URL, "merchant@example.com", "wrong", "", 5*time.Second)

	_, err := p.Collect(context.Background(), payment.CollectRequest{
		Reference: "ref-1",
		Amount:    decimal.NewFromInt(10),
		Currency:  "KES",
	})
	assert.Error(t, err)
}

func TestMomoPayout(t *testing.T) {
	srv, _ := momoTestServer(t)
	p := payment.NewMomoProvider(srv.URL, "merchant@example.com", "s3cret", "https://pay.example.com", 5*time.Second)

	resp, err := p.Payout(context.Background(), payment.PayoutRequest{
		Reference:   "wd-1",
		Amount:      decimal.RequireFromString("19.60"),
		Currency:    "USD",
		Method:      "crypto",
		Destination: "0x1234567890abcdef1234567890abcdef12345678",
	})
	require.NoError(t, err)
	assert.Equal(t, "payout-uuid-1", resp.ExternalReference)
	assert.Equal(t, "0xhash", resp.TransactionHash)
}

func TestMockProviderDeterministic(t *testing.T) {
	m := payment.NewMockProvider()
	m.Latency = 0

	a, err := m.Collect(context.Background(), payment.CollectRequest{Reference: "ref-1"})
	require.NoError(t, err)
	b, err := m.Collect(context.Background(), payment.CollectRequest{Reference: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, a.ExternalReference, b.ExternalReference)

	c, err := m.Collect(context.Background(), payment.CollectRequest{Reference: "ref-2"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ExternalReference, c.ExternalReference)
}
