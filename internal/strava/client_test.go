// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package strava

import (
	"context"
	"testing"
	"time"

	"github.com/stridelab/stride-backend/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountStore struct {
	swapped   bool
	swapOK    bool
	reRead    *schema.StravaAccount
	swapCalls int
}

func (f *fakeAccountStore) SwapTokens(accountID int64, oldExpiresAt int64, accessToken, refreshToken string, expiresAt int64) (bool, error) {
	f.swapCalls++
	f.swapped = true
	return f.swapOK, nil
}

func (f *fakeAccountStore) FindAccount(id int64) (*schema.StravaAccount, error) {
	return f.reRead, nil
}

func TestAuthorizeURL(t *testing.T) {
	client := New("12345", "secret", "http://localhost:8000/api/auth/strava/callback")
	url := client.AuthorizeURL("statetoken")

	assert.Contains(t, url, "https://www.strava.com/oauth/authorize")
	assert.Contains(t, url, "client_id=12345")
	assert.Contains(t, url, "state=statetoken")
	assert.Contains(t, url, "approval_prompt=force")
	assert.Contains(t, url, "activity%3Aread_all")
}

func TestEnsureValidTokenFreshTokenPassesThrough(t *testing.T) {
	client := New("id", "secret", "uri")
	store := &fakeAccountStore{}

	account := &schema.StravaAccount{
		ID:          1,
		AccessToken: "current-token",
		ExpiresAt:   time.Now().Unix() + 3600,
	}

	token, err := client.EnsureValidToken(context.Background(), store, account)
	require.NoError(t, err)
	assert.Equal(t, "current-token", token)
	assert.False(t, store.swapped, "no refresh should run for a fresh token")
}

func TestEnsureValidTokenBufferBoundary(t *testing.T) {
	client := New("id", "secret", "uri")
	store := &fakeAccountStore{}

	// Comfortably beyond the 60s buffer: no refresh.
	account := &schema.StravaAccount{
		ID:          1,
		AccessToken: "current-token",
		ExpiresAt:   time.Now().Unix() + 120,
	}
	token, err := client.EnsureValidToken(context.Background(), store, account)
	require.NoError(t, err)
	assert.Equal(t, "current-token", token)
	assert.Zero(t, store.swapCalls)
}

func TestErrorTyping(t *testing.T) {
	apiErr := &APIError{StatusCode: 500, Endpoint: "activity_detail", Body: "boom"}
	assert.Contains(t, apiErr.Error(), "activity_detail")
	assert.Contains(t, apiErr.Error(), "500")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "longer...", truncate("longer text", 6))
}
