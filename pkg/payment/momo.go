package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MomoProvider talks to the aggregator's mobile-money API: bearer login,
// then collect (customer-to-business) and payout (business-to-customer).
type MomoProvider struct {
	BaseURL     string
	Email       string
	Password    string
	WebhookBase string
	client      *http.Client
}

func NewMomoProvider(baseURL, email, password, webhookBase string, timeout time.Duration) *MomoProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MomoProvider{
		BaseURL:     baseURL,
		Email:       email,
		Password:    password,
		WebhookBase: webhookBase,
		client:      &http.Client{Timeout: timeout},
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
}

// getToken logs in and returns a fresh token (per transaction, as the
// aggregator recommends).
func (p *MomoProvider) getToken(ctx context.Context) (string, error) {
	body, _ := json.Marshal(loginReq{Email: p.Email, Password: p.Password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/v1/merchants/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed: %d", resp.StatusCode)
	}
	var out loginResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

type collectAPIReq struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Country       string `json:"country"`
	Provider      string `json:"provider"`
	Description   string `json:"description"`
	CustomerPhone string `json:"customer_phone"`
	CallbackURL   string `json:"callback_url"`
	OrderID       string `json:"order_id"`
}

type collectAPIResp struct {
	UUID                string `json:"uuid"`
	OrderID             string `json:"order_id"`
	Status              string `json:"status"`
	ResponseCode        string `json:"response_code"`
	ResponseDescription string `json:"response_description"`
	CustomerMessage     string `json:"customer_message"`
	RedirectURL         string `json:"redirect_url"`
}

func (p *MomoProvider) Collect(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	token, err := p.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("momo login: %w", err)
	}
	callbackURL := req.CallbackURL
	if callbackURL == "" && p.WebhookBase != "" {
		callbackURL = p.WebhookBase + "/api/v1/webhooks/payment"
	}
	payload := collectAPIReq{
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Country:       req.Country,
		Provider:      req.Provider,
		Description:   req.Description,
		CustomerPhone: req.PhoneNumber,
		CallbackURL:   callbackURL,
		OrderID:       req.Reference,
	}
	body, _ := json.Marshal(payload)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/v1/transactions/collect", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set("Authorization", "Bearer "+token)
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("momo collect: %d %s", resp.StatusCode, string(respBody))
	}
	var out collectAPIResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	instructions := out.CustomerMessage
	if instructions == "" {
		instructions = "Approve the payment prompt on your phone to complete the transaction."
	}
	return &CollectResponse{
		ExternalReference: out.UUID,
		Status:            out.Status,
		RedirectURL:       out.RedirectURL,
		Instructions:      instructions,
	}, nil
}

type payoutAPIResp struct {
	UUID                string `json:"uuid"`
	OrderID             string `json:"order_id"`
	Status              string `json:"status"`
	TransactionHash     string `json:"transaction_hash"`
	ResponseCode        string `json:"response_code"`
	ResponseDescription string `json:"response_description"`
}

func (p *MomoProvider) Payout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	token, err := p.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("payout login: %w", err)
	}
	callbackURL := req.CallbackURL
	if callbackURL == "" && p.WebhookBase != "" {
		callbackURL = p.WebhookBase + "/api/v1/webhooks/payout"
	}
	body, _ := json.Marshal(map[string]string{
		"amount":       req.Amount.StringFixed(2),
		"currency":     req.Currency,
		"method":       req.Method,
		"destination":  req.Destination,
		"description":  req.Description,
		"order_id":     req.Reference,
		"callback_url": callbackURL,
	})
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/v1/transactions/payout", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set("Authorization", "Bearer "+token)
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payout api: %d %s", resp.StatusCode, string(respBody))
	}
	var out payoutAPIResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	return &PayoutResponse{
		ExternalReference: out.UUID,
		Status:            out.Status,
		TransactionHash:   out.TransactionHash,
	}, nil
}
