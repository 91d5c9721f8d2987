// Package exchange implements the Kraken Futures v3 REST client used
// for live account state and order management.
package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "kraken-trader/internal/errors"
)

// DefaultBaseURL is the Kraken Futures production endpoint.
const DefaultBaseURL = "https://futures.kraken.com"

// Client talks to the Kraken Futures derivatives API.
type Client struct {
	baseURL    string
	apiKey     string
	privateKey string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientConfig holds client construction options.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	PrivateKey string // base64-encoded API secret
	Logger     zerolog.Logger
}

// NewClient creates a Kraken Futures REST client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		privateKey: cfg.PrivateKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     cfg.Logger,
	}
}

// OpenOrder is an order as reported by the exchange.
type OpenOrder struct {
	OrderID string  `json:"order_id"`
	Symbol  string  `json:"symbol"`
	Side    string  `json:"side"`
	Size    float64 `json:"unfilledSize"`
}

// OpenPosition is a position as reported by the exchange.
type OpenPosition struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Size   float64 `json:"size"`
	Price  float64 `json:"price"`
}

// Account holds account balances keyed by currency.
type Account struct {
	Balances map[string]float64 `json:"balances"`
}

type openOrdersResponse struct {
	Result     string      `json:"result"`
	Error      string      `json:"error"`
	OpenOrders []OpenOrder `json:"openOrders"`
}

type openPositionsResponse struct {
	Result        string         `json:"result"`
	Error         string         `json:"error"`
	OpenPositions []OpenPosition `json:"openPositions"`
}

type accountsResponse struct {
	Result   string             `json:"result"`
	Error    string             `json:"error"`
	Accounts map[string]Account `json:"accounts"`
}

type sendOrderResponse struct {
	Result     string `json:"result"`
	Error      string `json:"error"`
	SendStatus struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	} `json:"sendStatus"`
}

type cancelAllResponse struct {
	Result       string `json:"result"`
	Error        string `json:"error"`
	CancelStatus struct {
		CancelledOrders []struct {
			OrderID string `json:"order_id"`
		} `json:"cancelledOrders"`
	} `json:"cancelStatus"`
}

// sign produces the Authent header value:
// Base64(HMAC-SHA512(SHA256(postData + nonce + endpointPath), Base64Decode(secret))).
func (c *Client) sign(endpoint, postData, nonce string) (string, error) {
	if c.privateKey == "" {
		return "", fmt.Errorf("%w: private key", apperrors.ErrMissingCredential)
	}
	secret, err := base64.StdEncoding.DecodeString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("decode private key: %w", err)
	}

	digest := sha256.Sum256([]byte(postData + nonce + endpoint))
	mac := hmac.New(sha512.New, secret)
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, out interface{}) error {
	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	postData := params.Encode()

	authent, err := c.sign(endpoint, postData, nonce)
	if err != nil {
		return err
	}

	fullURL := c.baseURL + endpoint
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(postData)
	} else if postData != "" {
		fullURL += "?" + postData
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("APIKey", c.apiKey)
	req.Header.Set("Authent", authent)
	req.Header.Set("Nonce", nonce)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperrors.ExchangeError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperrors.ExchangeError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode >= 400 {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Msg("Kraken Futures API error")
		return &apperrors.ExchangeError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  string(raw),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &apperrors.ExchangeError{Endpoint: endpoint, Err: err}
		}
	}
	return nil
}

// GetAccounts fetches account balances.
func (c *Client) GetAccounts(ctx context.Context) (map[string]Account, error) {
	var resp accountsResponse
	if err := c.request(ctx, http.MethodGet, "/derivatives/api/v3/accounts", url.Values{}, &resp); err != nil {
		return nil, err
	}
	if resp.Result != "success" {
		return nil, &apperrors.ExchangeError{Endpoint: "accounts", Message: resp.Error}
	}
	return resp.Accounts, nil
}

// GetOpenOrders fetches orders currently open on the exchange.
func (c *Client) GetOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	var resp openOrdersResponse
	if err := c.request(ctx, http.MethodGet, "/derivatives/api/v3/openorders", url.Values{}, &resp); err != nil {
		return nil, err
	}
	if resp.Result != "success" {
		return nil, &apperrors.ExchangeError{Endpoint: "openorders", Message: resp.Error}
	}
	return resp.OpenOrders, nil
}

// GetOpenPositions fetches positions currently open on the exchange.
func (c *Client) GetOpenPositions(ctx context.Context) ([]OpenPosition, error) {
	var resp openPositionsResponse
	if err := c.request(ctx, http.MethodGet, "/derivatives/api/v3/openpositions", url.Values{}, &resp); err != nil {
		return nil, err
	}
	if resp.Result != "success" {
		return nil, &apperrors.ExchangeError{Endpoint: "openpositions", Message: resp.Error}
	}
	return resp.OpenPositions, nil
}

// SendOrder submits an order. orderType follows the exchange vocabulary
// (mkt, lmt, ioc, post).
func (c *Client) SendOrder(ctx context.Context, symbol, side, orderType string, size float64, limitPrice float64) (string, error) {
	params := url.Values{
		"symbol":    {symbol},
		"side":      {side},
		"orderType": {orderType},
		"size":      {strconv.FormatFloat(size, 'f', -1, 64)},
	}
	if limitPrice > 0 {
		params.Set("limitPrice", strconv.FormatFloat(limitPrice, 'f', -1, 64))
	}

	var resp sendOrderResponse
	if err := c.request(ctx, http.MethodPost, "/derivatives/api/v3/sendorder", params, &resp); err != nil {
		return "", err
	}
	if resp.Result != "success" {
		return "", &apperrors.ExchangeError{Endpoint: "sendorder", Message: resp.Error}
	}
	c.logger.Info().
		Str("symbol", symbol).
		Str("side", side).
		Str("order_id", resp.SendStatus.OrderID).
		Float64("size", size).
		Msg("Order sent to exchange")
	return resp.SendStatus.OrderID, nil
}

// CancelAllOrders cancels every open order, optionally limited to one
// symbol.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) (int, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	var resp cancelAllResponse
	if err := c.request(ctx, http.MethodPost, "/derivatives/api/v3/cancelallorders", params, &resp); err != nil {
		return 0, err
	}
	if resp.Result != "success" {
		return 0, &apperrors.ExchangeError{Endpoint: "cancelallorders", Message: resp.Error}
	}
	return len(resp.CancelStatus.CancelledOrders), nil
}
