// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
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
	"github.com/stridelab/stride-backend/internal/taskManager"
	"github.com/stridelab/stride-backend/pkg/log"
)

const version = "1.1.0"

func main() {
	cliInit()

	if flagVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	if err := config.Init(flagEnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	loglevel := config.Keys.LogLevel
	if flagLogLevel != "" {
		loglevel = flagLogLevel
	}
	log.Init(loglevel, flagLogDateTime || config.Keys.LogDate)

	driver := config.Keys.DBDriver()

	if flagMigrateDB {
		if err := repository.MigrateDB(driver, config.Keys.DatabaseURL); err != nil {
			log.Fatal(err)
		}
		log.Infof("database migrated (driver %s)", driver)
		os.Exit(0)
	}
	if flagRevertDB {
		log.Fatal("revert-db not supported; use an external migrate tool")
	}

	repository.Connect(driver, config.Keys.DatabaseURL)

	client := strava.New(config.Keys.StravaClientID, config.Keys.StravaClientSecret,
		config.Keys.StravaRedirectURI)

	q, err := queue.New(config.Keys.RedisURL, queue.DefaultName)
	if err != nil {
		log.Fatal(err)
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if flagWorker {
		syncService := ingest.NewService(client)
		for i := 0; i < config.Keys.NumWorkers; i++ {
			worker := queue.NewWorker(q)
			syncService.RegisterJobs(worker)
			wg.Add(1)
			go func() {
				defer wg.Done()
				worker.Run(ctx)
			}()
		}
	}

	taskManager.Start(q)
	defer taskManager.Shutdown()

	runServer(ctx, client, q)
	wg.Wait()
}
