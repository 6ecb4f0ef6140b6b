package betfair

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/yourusername/cross-book/internal/exchange"
	"github.com/yourusername/cross-book/internal/models"
)

// LoginResponse represents the response from certificate login
type LoginResponse struct {
	SessionToken string `json:"sessionToken"`
	LoginStatus  string `json:"loginStatus"`
}

// Login performs certificate-based authentication with Betfair
func (c *Client) Login(ctx context.Context) error {
	c.logger.WithField("username", c.config.Username).Info("attempting certificate login")

	loginResp, err := c.loginInternal(ctx)
	if err != nil {
		return &exchange.AuthenticationError{Exchange: models.ExchangeBF, Message: "login request failed", Cause: err}
	}

	if loginResp.LoginStatus != "SUCCESS" {
		return &exchange.AuthenticationError{
			Exchange: models.ExchangeBF,
			Message:  fmt.Sprintf("login failed: %s", loginResp.LoginStatus),
		}
	}

	if loginResp.SessionToken == "" {
		return &exchange.AuthenticationError{Exchange: models.ExchangeBF, Message: "no session token in response"}
	}

	// Session tokens last roughly 12 hours under cert login
	c.SetSessionToken(loginResp.SessionToken, time.Now().Add(12*time.Hour))

	c.logger.Info("login successful, session token obtained")
	return nil
}

// loginInternal performs the actual certificate login request
func (c *Client) loginInternal(ctx context.Context) (*LoginResponse, error) {
	cert, err := tls.LoadX509KeyPair(c.config.CertFile, c.config.KeyFile)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	formData := url.Values{}
	formData.Set("username", c.config.Username)
	formData.Set("password", c.config.Password)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.config.LoginURL,
		bytes.NewBufferString(formData.Encode()),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Application", c.config.AppKey)

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
		Timeout: 30 * time.Second,
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, err
	}

	return &loginResp, nil
}
