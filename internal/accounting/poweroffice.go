package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"hercules_backend/internal/config"
	"hercules_backend/internal/logger"
	"hercules_backend/internal/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	productionBaseURL = "https://goapi.poweroffice.net/v2"
	demoBaseURL       = "https://godemoapi.poweroffice.net/v2"

	// tokenExpiryMargin refreshes tokens before they actually lapse so an
	// in-flight request never carries a token that dies mid-call.
	tokenExpiryMargin = 60 * time.Second
)

// Client mirrors ledger documents into PowerOffice Go. Everything here is
// best-effort from the caller's point of view: the local ledger is the one
// legally authoritative store.
type Client struct {
	http    *retryablehttp.Client
	baseURL string

	appKey          string
	clientKey       string
	subscriptionKey string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg *config.Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil

	baseURL := productionBaseURL
	if cfg.Accounting.Demo {
		baseURL = demoBaseURL
	}
	return &Client{
		http:            rc,
		baseURL:         baseURL,
		appKey:          cfg.Accounting.AppKey,
		clientKey:       cfg.Accounting.ClientKey,
		subscriptionKey: cfg.Accounting.SubscriptionKey,
	}
}

// Enabled reports whether credentials are configured. A disabled client is
// wired as a nil AccountingMirror upstream.
func (c *Client) Enabled() bool {
	return c.appKey != "" && c.clientKey != ""
}

// token returns a cached access token, fetching a fresh one through the
// client-credentials grant when the cache is empty or near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.appKey, c.clientKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.subscriptionKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("accounting token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("accounting token request: status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

type customer struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
}

type orderLine struct {
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      float64 `json:"unitPrice"`
	VatRatePercent float64 `json:"vatRatePercent"`
}

type salesOrder struct {
	ID                      int64       `json:"id,omitempty"`
	CustomerID              int64       `json:"customerId"`
	OrderDate               string      `json:"orderDate"`
	CurrencyCode            string      `json:"currencyCode"`
	ExternalImportReference string      `json:"externalImportReference"`
	Lines                   []orderLine `json:"salesOrderLines"`
}

// EnsureCustomer finds the accounting customer by email, creating it when
// missing, and returns its PowerOffice ID.
func (c *Client) EnsureCustomer(ctx context.Context, name, email string) (int64, error) {
	var found struct {
		Values []customer `json:"values"`
	}
	query := url.Values{"emailAddress": {email}}
	if err := c.call(ctx, http.MethodGet, "/customers?"+query.Encode(), nil, &found); err != nil {
		return 0, err
	}
	if len(found.Values) > 0 {
		return found.Values[0].ID, nil
	}

	var created customer
	err := c.call(ctx, http.MethodPost, "/customers", customer{Name: name, EmailAddress: email}, &created)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// CreateOrderDraft pushes one ledger document as a sales order draft. The
// document's external reference doubles as the import reference, so a
// repeated push is rejected by PowerOffice rather than duplicated.
func (c *Client) CreateOrderDraft(ctx context.Context, customerID int64, doc *models.SalesDocument) (int64, error) {
	order := salesOrder{
		CustomerID:              customerID,
		OrderDate:               doc.DocumentDate.Format(time.DateOnly),
		CurrencyCode:            doc.Currency,
		ExternalImportReference: doc.ExternalReference,
		Lines: []orderLine{{
			Description:    fmt.Sprintf("%s (%s)", doc.Description, doc.InvoiceNumber),
			Quantity:       1,
			UnitPrice:      float64(doc.AmountExTax) / 100,
			VatRatePercent: 25,
		}},
	}

	var created salesOrder
	if err := c.call(ctx, http.MethodPost, "/salesOrders", order, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// MirrorDocument implements the billing accounting mirror: customer first,
// then the order draft.
func (c *Client) MirrorDocument(ctx context.Context, doc *models.SalesDocument) (int64, error) {
	customerID, err := c.EnsureCustomer(ctx, doc.CustomerName, doc.CustomerEmail)
	if err != nil {
		return 0, err
	}
	orderID, err := c.CreateOrderDraft(ctx, customerID, doc)
	if err != nil {
		return 0, err
	}
	logger.CtxInfo(ctx, "ledger document mirrored to accounting",
		"invoice_number", doc.InvoiceNumber, "order_id", orderID)
	return orderID, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if c.subscriptionKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("accounting %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("accounting %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
