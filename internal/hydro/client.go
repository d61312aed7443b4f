package hydro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/peakwatch/peakwatch/pkg/models"
)

const (
	sessionHost = "https://session.hydroquebec.com"
	portalHost  = "https://cl-ec-spring.hydroquebec.com"

	defaultLoginURL        = sessionHost + "/config/security/securityCheck"
	defaultWinterCreditURL = portalHost + "/portail/fr/group/clientele/gerer-mon-compte/resourceObtenirDonneesPeriodesEffacement"

	// sessionLifetime is how long portal cookies stay usable before we log in again
	sessionLifetime = 10 * time.Minute
	requestTimeout  = 30 * time.Second
)

// AuthError represents an authentication failure against the portal
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Client is an HTTP session client for the Hydro-Québec customer portal. It
// logs in with the account credentials, keeps the session cookies, and fetches
// the raw winter credit payload for a contract. It implements
// wintercredit.Fetcher.
type Client struct {
	username string
	password string
	http     *http.Client

	loginURL        string
	winterCreditURL string

	loggedInAt time.Time
}

// NewClient creates a portal client for the given account credentials
func NewClient(username, password string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		username: username,
		password: password,
		http: &http.Client{
			Jar:     jar,
			Timeout: requestTimeout,
		},
		loginURL:        defaultLoginURL,
		winterCreditURL: defaultWinterCreditURL,
	}, nil
}

// SessionExpired reports whether a fresh login is needed before portal calls
func (c *Client) SessionExpired() bool {
	return c.loggedInAt.IsZero() || time.Since(c.loggedInAt) > sessionLifetime
}

// Login authenticates against the portal and keeps the session cookies
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("j_username", c.username)
	form.Set("j_password", c.password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("login failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	c.loggedInAt = time.Now()
	return nil
}

// ensureSession logs in again when the session cookies have gone stale
func (c *Client) ensureSession(ctx context.Context) error {
	if !c.SessionExpired() {
		return nil
	}
	return c.Login(ctx)
}

// GetWinterCredit fetches the raw winter credit payload for a contract
func (c *Client) GetWinterCredit(ctx context.Context, webUserID, customerID, contractID string) (*models.WinterData, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, fmt.Errorf("refreshing portal session: %w", err)
	}

	query := url.Values{}
	query.Set("noPartenaireDemandeur", webUserID)
	query.Set("noPartenaireTitulaire", customerID)
	query.Set("noContrat", contractID)

	req, err := http.NewRequestWithContext(ctx, "GET", c.winterCreditURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating winter credit request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending winter credit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Forgetting the stale session forces a login on the next attempt
		c.loggedInAt = time.Time{}
		return nil, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("portal session rejected with status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data models.WinterData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding winter credit payload: %w", err)
	}
	return &data, nil
}

// Close releases the client's idle connections
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
