// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/stridelab/stride-backend/internal/api"
	"github.com/stridelab/stride-backend/internal/config"
	"github.com/stridelab/stride-backend/internal/queue"
	"github.com/stridelab/stride-backend/internal/strava"
	"github.com/stridelab/stride-backend/pkg/log"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// runServer blocks until ctx is cancelled, then drains in-flight
// requests.
func runServer(ctx context.Context, client *strava.Client, q *queue.Queue) {
	r := mux.NewRouter()

	restAPI := api.New(client, q)
	restAPI.MountRoutes(r)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	handler := handlers.RecoveryHandler()(
		handlers.CompressHandler(
			handlers.LoggingHandler(os.Stdout, r)))

	server := &http.Server{
		Addr:         config.Keys.Addr,
		Handler:      handler,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("server shutdown: %v", err)
		}
	}()

	log.Infof("HTTP server listening at %s (env %s)", config.Keys.Addr, config.Keys.AppEnv)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
