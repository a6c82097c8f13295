// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// stride-worker drains the sync queue. Workers are interchangeable and
// horizontally scalable; run as many processes as the provider rate
// budget tolerates.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/stridelab/stride-backend/internal/config"
	"github.com/stridelab/stride-backend/internal/ingest"
	"github.com/stridelab/stride-backend/internal/queue"
	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/internal/strava"
	"github.com/stridelab/stride-backend/pkg/log"
)

func main() {
	var envFile, logLevel string
	var logDate bool
	var numWorkers int
	flag.StringVar(&envFile, "env", ".env", "Specify the environment file to load")
	flag.StringVar(&logLevel, "loglevel", "", "Sets the logging level: `debug,info,warn,err,crit`")
	flag.BoolVar(&logDate, "logdate", false, "Set this flag to add date and time to log messages")
	flag.IntVar(&numWorkers, "n", 0, "Number of worker goroutines (overrides NUM_WORKERS)")
	flag.Parse()

	if err := config.Init(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if logLevel == "" {
		logLevel = config.Keys.LogLevel
	}
	log.Init(logLevel, logDate || config.Keys.LogDate)

	if numWorkers <= 0 {
		numWorkers = config.Keys.NumWorkers
	}

	repository.Connect(config.Keys.DBDriver(), config.Keys.DatabaseURL)

	client := strava.New(config.Keys.StravaClientID, config.Keys.StravaClientSecret,
		config.Keys.StravaRedirectURI)

	q, err := queue.New(config.Keys.RedisURL, queue.DefaultName)
	if err != nil {
		log.Fatal(err)
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncService := ingest.NewService(client)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		worker := queue.NewWorker(q)
		syncService.RegisterJobs(worker)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	log.Infof("%d workers running", numWorkers)
	wg.Wait()
}
