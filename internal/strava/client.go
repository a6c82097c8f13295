// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package strava is the typed client for the provider REST API: OAuth
// token exchange and refresh, activity summary/detail fetch and stream
// fetch. Constructed once from configuration and injected; it holds no
// mutable state besides the client-side rate limiter.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stridelab/stride-backend/pkg/log"
	"github.com/stridelab/stride-backend/pkg/schema"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	apiBaseURL   = "https://www.strava.com/api/v3"
	authorizeURL = "https://www.strava.com/oauth/authorize"
	tokenURL     = "https://www.strava.com/oauth/token"

	// OAuth scope requested on linkage.
	oauthScope = "read,activity:read_all,profile:read_all"

	requestTimeout = 30 * time.Second
)

// Typed errors the queue and sync layers dispatch on.
var (
	// ErrRateLimited marks an HTTP 429; the queue decides backoff.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrInsufficientScope marks an HTTP 403 (missing activity:read_all).
	ErrInsufficientScope = errors.New("provider token lacks required scope")
)

// APIError is any non-2xx provider response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stride_strava_requests_total",
	Help: "Provider API requests by endpoint and status code.",
}, []string{"endpoint", "status"})

// TokenBundle is the provider's token response in canonical form.
type TokenBundle struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // unix seconds
	Scope        string
}

// AccountStore is the slice of the user repository the token lifecycle
// needs: compare-and-swap the token triple, re-read on conflict.
type AccountStore interface {
	SwapTokens(accountID int64, oldExpiresAt int64, accessToken, refreshToken string, expiresAt int64) (bool, error)
	FindAccount(id int64) (*schema.StravaAccount, error)
}

type Client struct {
	http    *http.Client
	oauth   *oauth2.Config
	limiter *rate.Limiter
}

// New builds the client from static credentials. The limiter (one
// request per 10 s, bursts of up to 10) keeps within the provider's
// 100-requests-per-15-minutes budget.
func New(clientID, clientSecret, redirectURI string) *Client {
	return &Client{
		http: &http.Client{Timeout: requestTimeout},
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{oauthScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizeURL,
				TokenURL: tokenURL,
			},
		},
		limiter: rate.NewLimiter(rate.Every(10*time.Second), 10),
	}
}

// AuthorizeURL is the provider consent page the user is redirected to.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("approval_prompt", "force"),
		oauth2.SetAuthURLParam("scope", oauthScope))
}

// ExchangeCode swaps the callback code for a token bundle. The athlete
// id rides along in the token response.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenBundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return bundleFromToken(tok), nil
}

// refresh posts the refresh grant and returns the new bundle. A
// failure here is fatal to the caller; there is no silent retry.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return bundleFromToken(tok), nil
}

func bundleFromToken(tok *oauth2.Token) *TokenBundle {
	b := &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
	}
	if athlete, ok := tok.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			b.AthleteID = int64(id)
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		b.Scope = scope
	} else {
		b.Scope = oauthScope
	}
	return b
}

// EnsureValidToken returns a usable access token for the account. If
// expires_at is more than 60s away the stored token is returned
// unchanged; otherwise the refresh grant runs and the account row is
// swapped atomically. When another worker won the swap, the updated
// row is re-read instead of refreshed twice.
func (c *Client) EnsureValidToken(ctx context.Context, store AccountStore, account *schema.StravaAccount) (string, error) {
	if account.ExpiresAt > time.Now().Unix()+60 {
		return account.AccessToken, nil
	}

	bundle, err := c.refresh(ctx, account.RefreshToken)
	if err != nil {
		return "", err
	}

	swapped, err := store.SwapTokens(account.ID, account.ExpiresAt,
		bundle.AccessToken, bundle.RefreshToken, bundle.ExpiresAt)
	if err != nil {
		return "", err
	}
	if !swapped {
		updated, err := store.FindAccount(account.ID)
		if err != nil {
			return "", err
		}
		*account = *updated
		return updated.AccessToken, nil
	}

	account.AccessToken = bundle.AccessToken
	account.RefreshToken = bundle.RefreshToken
	account.ExpiresAt = bundle.ExpiresAt
	return bundle.AccessToken, nil
}

// FetchActivitiesSince returns one page of raw activity summaries
// after the given unix timestamp.
func (c *Client) FetchActivitiesSince(ctx context.Context, accessToken string, afterUnix int64, perPage int) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("after", fmt.Sprint(afterUnix))
	params.Set("per_page", fmt.Sprint(perPage))

	body, err := c.get(ctx, accessToken, "/athlete/activities?"+params.Encode(), "athlete_activities")
	if err != nil {
		return nil, err
	}

	var activities []json.RawMessage
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("decoding activity list: %w", err)
	}
	return activities, nil
}

// FetchActivity returns the raw detail payload of one activity.
func (c *Client) FetchActivity(ctx context.Context, accessToken string, activityID int64) (json.RawMessage, error) {
	return c.get(ctx, accessToken, fmt.Sprintf("/activities/%d", activityID), "activity_detail")
}

// FetchStreams returns the requested channels keyed by type. Channels
// the provider does not have are simply absent from the map.
func (c *Client) FetchStreams(ctx context.Context, accessToken string, activityID int64, channels []string) (map[string]json.RawMessage, error) {
	path := fmt.Sprintf("/activities/%d/streams/%s?key_by_type=true",
		activityID, strings.Join(channels, ","))
	body, err := c.get(ctx, accessToken, path, "activity_streams")
	if err != nil {
		return nil, err
	}

	// Response per channel: {"data": [...], "original_size": N, ...}.
	var keyed map[string]struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &keyed); err != nil {
		return nil, fmt.Errorf("decoding streams: %w", err)
	}

	out := make(map[string]json.RawMessage, len(keyed))
	for channel, obj := range keyed {
		if len(obj.Data) > 0 {
			out[channel] = obj.Data
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, accessToken, path, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strava %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, fmt.Sprint(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Warnf("strava %s: rate limit exceeded", endpoint)
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, endpoint)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrInsufficientScope, endpoint)
	case resp.StatusCode >= 400:
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: truncate(string(body), 200)}
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
