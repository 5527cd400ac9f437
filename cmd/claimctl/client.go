package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/handler"
	"github.com/medifast/claims-api/internal/model"
)

// apiClient talks to a running claims API. Responses arrive in the
// standard envelope; data is unwrapped before it reaches a command.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError wraps non-2xx responses with the server's message.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
}

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    *handler.ListMeta `json:"meta"`
}

func (c *apiClient) login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	body := model.LoginRequest{Email: email, Password: password}
	var tokens model.TokenResponse
	if _, err := c.do(ctx, http.MethodPost, "auth/login", body, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *apiClient) listClaims(ctx context.Context, status string, page, pageSize int) ([]model.Claim, *handler.ListMeta, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprint(pageSize))
	}
	endpoint := "claims"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var claims []model.Claim
	meta, err := c.do(ctx, http.MethodGet, endpoint, nil, &claims)
	return claims, meta, err
}

// getClaim resolves either a claim UUID or a CLM claim number.
func (c *apiClient) getClaim(ctx context.Context, ref string) (*model.Claim, error) {
	endpoint := "claims/" + url.PathEscape(ref)
	if strings.HasPrefix(strings.ToUpper(ref), "CLM-") {
		endpoint = "claims/number/" + url.PathEscape(strings.ToUpper(ref))
	}
	var claim model.Claim
	if _, err := c.do(ctx, http.MethodGet, endpoint, nil, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (c *apiClient) transitionClaim(ctx context.Context, id uuid.UUID, status, notes string) (*model.Claim, error) {
	body := model.UpdateClaimStatusRequest{Status: model.ClaimStatus(status), Notes: notes}
	var claim model.Claim
	endpoint := fmt.Sprintf("claims/%s/status", id)
	if _, err := c.do(ctx, http.MethodPost, endpoint, body, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (c *apiClient) assignClaim(ctx context.Context, id uuid.UUID, hospital, insurer *uuid.UUID) (*model.Claim, error) {
	body := model.AssignClaimRequest{AssignedHospital: hospital, AssignedInsurer: insurer}
	var claim model.Claim
	endpoint := fmt.Sprintf("claims/%s/assign", id)
	if _, err := c.do(ctx, http.MethodPut, endpoint, body, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (c *apiClient) claimTrail(ctx context.Context, id uuid.UUID) ([]model.AuditLogEntry, error) {
	var entries []model.AuditLogEntry
	endpoint := fmt.Sprintf("audit/claims/%s", id)
	if _, err := c.do(ctx, http.MethodGet, endpoint, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *apiClient) claimAnalytics(ctx context.Context) (*model.ClaimAnalytics, error) {
	var stats model.ClaimAnalytics
	if _, err := c.do(ctx, http.MethodGet, "analytics/claims", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *apiClient) listNotifications(ctx context.Context, unreadOnly bool, page, pageSize int) ([]model.Notification, *handler.ListMeta, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprint(pageSize))
	}
	endpoint := "notifications"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var notifications []model.Notification
	meta, err := c.do(ctx, http.MethodGet, endpoint, nil, &notifications)
	return notifications, meta, err
}

func (c *apiClient) ready(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "health/ready", nil, nil)
	return err
}

func (c *apiClient) do(ctx context.Context, method, endpoint string, body, out any) (*handler.ListMeta, error) {
	target := c.baseURL + "/api/v1/" + strings.TrimLeft(endpoint, "/")

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var env envelope
		if err := json.Unmarshal(b, &env); err == nil && env.Message != "" {
			return nil, &apiError{StatusCode: resp.StatusCode, Message: env.Message}
		}
		return nil, &apiError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, err
		}
	}
	return env.Meta, nil
}
