// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/stridelab/stride-backend/internal/config"
	"github.com/stridelab/stride-backend/pkg/log"
)

func randState(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// stravaLogin redirects the user to the provider consent page.
func (api *RestApi) stravaLogin(rw http.ResponseWriter, r *http.Request) {
	state, err := randState(16)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		MaxAge:   3600,
		Secure:   r.TLS != nil,
		HttpOnly: true,
	})
	http.Redirect(rw, r, api.Client.AuthorizeURL(state), http.StatusFound)
}

// stravaCallback exchanges the code, links the account (creating the
// user implicitly) and bounces to the frontend.
func (api *RestApi) stravaCallback(rw http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		handleError(fmt.Errorf("missing code parameter"), http.StatusBadRequest, rw)
		return
	}

	if c, err := r.Cookie("oauth_state"); err == nil {
		if state := r.URL.Query().Get("state"); state != "" && state != c.Value {
			handleError(fmt.Errorf("state mismatch"), http.StatusBadRequest, rw)
			return
		}
	}

	bundle, err := api.Client.ExchangeCode(r.Context(), code)
	if err != nil {
		handleError(fmt.Errorf("failed to exchange token: %w", err), http.StatusBadRequest, rw)
		return
	}
	if bundle.AthleteID == 0 {
		handleError(fmt.Errorf("no athlete id in token response"), http.StatusBadRequest, rw)
		return
	}

	account, err := api.Users.LinkAccount(bundle.AthleteID,
		bundle.AccessToken, bundle.RefreshToken, bundle.ExpiresAt, bundle.Scope)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	log.Infof("linked strava athlete %d to user %s", account.StravaAthleteID, account.UserID)

	http.Redirect(rw, r, config.Keys.AppBaseURL+"?connected=true", http.StatusFound)
}
