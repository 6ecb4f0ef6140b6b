// Package betfair implements the exchange contracts against the Betfair
// API-NG JSON-RPC endpoints. Betfair is the synchronous exchange: order
// references come back in the placement response.
package betfair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/exchange"
	"github.com/yourusername/cross-book/internal/models"
)

// Config holds Betfair API credentials and endpoints
type Config struct {
	APIURL     string
	AccountURL string
	LoginURL   string
	AppKey     string
	Username   string
	Password   string
	CertFile   string
	KeyFile    string
}

// Client implements the Betfair API-NG JSON-RPC client
type Client struct {
	httpClient   *exchange.ThrottledClient
	config       Config
	sessionToken string
	tokenExpiry  time.Time
	mu           sync.RWMutex
	logger       *logrus.Entry
}

// JSONRPCRequest represents a JSON-RPC request
type JSONRPCRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
	ID      int                    `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error codes for the Betfair API
const (
	ErrorInvalidSessionInformation = "INVALID_SESSION_INFORMATION"
	ErrorInsufficientFunds         = "INSUFFICIENT_FUNDS"
	ErrorMarketSuspended           = "MARKET_SUSPENDED"
	ErrorOrderLimitExceeded        = "ORDER_LIMIT_EXCEEDED"
	ErrorTooManyRequests           = "TOO_MANY_REQUESTS"
	ErrorServiceBusy               = "SERVICE_BUSY"
	ErrorTimeoutError              = "TIMEOUT_ERROR"
)

// NewClient creates a new Betfair API client
func NewClient(cfg Config, httpClient *exchange.ThrottledClient, logger *logrus.Entry) *Client {
	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger,
	}
}

// makeRequest performs a JSON-RPC request against the given endpoint
func (c *Client) makeRequest(
	ctx context.Context,
	endpoint string,
	method string,
	params map[string]interface{},
) (json.RawMessage, error) {
	c.mu.RLock()
	sessionToken := c.sessionToken
	c.mu.RUnlock()

	if sessionToken == "" {
		return nil, &exchange.AuthenticationError{Exchange: models.ExchangeBF, Message: "no active session token"}
	}

	reqBody := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Application", c.config.AppKey)
	req.Header.Set("X-Authentication", sessionToken)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var jsonResp JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&jsonResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if jsonResp.Error != nil {
		return nil, mapAPIError(jsonResp.Error)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return jsonResp.Result, nil
}

// SetSessionToken sets the session token for API requests
func (c *Client) SetSessionToken(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
	c.tokenExpiry = expiry
}

// IsAuthenticated checks if the client has an active session
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken != "" && time.Now().Before(c.tokenExpiry)
}

// NeedsRefresh reports whether the token expires within 5 minutes
func (c *Client) NeedsRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(5 * time.Minute).After(c.tokenExpiry)
}

// mapAPIError maps Betfair error codes to the shared error taxonomy
func mapAPIError(rpcErr *JSONRPCError) error {
	code := apiExceptionCode(rpcErr.Data)
	switch code {
	case ErrorInvalidSessionInformation:
		return &exchange.AuthenticationError{Exchange: models.ExchangeBF, Message: "invalid session information"}
	case ErrorInsufficientFunds:
		return &exchange.InsufficientFundsError{Exchange: models.ExchangeBF, Message: rpcErr.Message}
	case ErrorMarketSuspended:
		return &exchange.MarketSuspendedError{Exchange: models.ExchangeBF, Message: rpcErr.Message}
	case ErrorTooManyRequests, ErrorServiceBusy, ErrorTimeoutError:
		return &exchange.APIError{Exchange: models.ExchangeBF, Code: code, Message: rpcErr.Message, Transient: true}
	default:
		return &exchange.APIError{Exchange: models.ExchangeBF, Code: code, Message: rpcErr.Message}
	}
}

// apiExceptionCode digs the APING exception code out of the error data
func apiExceptionCode(data json.RawMessage) string {
	var wrapper struct {
		APINGException struct {
			ErrorCode string `json:"errorCode"`
		} `json:"APINGException"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return ""
	}
	return wrapper.APINGException.ErrorCode
}
