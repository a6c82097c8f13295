// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"net/http"
)

// getTrends serves the aggregated chart series for one range,
// optionally filtered by activity types (multi-select).
func (api *RestApi) getTrends(rw http.ResponseWriter, r *http.Request) {
	user, err := api.Users.FirstUser()
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	rangeKey := r.URL.Query().Get("range")
	if rangeKey == "" {
		rangeKey = "30D"
	}
	types := r.URL.Query()["types"]

	report, err := api.Trends.BuildReport(user.ID, rangeKey, types)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, report)
}

func (api *RestApi) getTrendTypes(rw http.ResponseWriter, r *http.Request) {
	user, err := api.Users.FirstUser()
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	types, err := api.Trends.AvailableTypes(user.ID)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, types)
}
