// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package taskManager schedules the recurring background work: the
// periodic full-sync sweep over every linked account.
package taskManager

import (
	"time"

	"github.com/stridelab/stride-backend/internal/config"
	"github.com/stridelab/stride-backend/internal/queue"
	"github.com/stridelab/stride-backend/pkg/log"

	"github.com/go-co-op/gocron/v2"
)

var s gocron.Scheduler

func parseDuration(str string) (time.Duration, error) {
	interval, err := time.ParseDuration(str)
	if err != nil {
		log.Warnf("Could not parse duration for sync interval: %v", str)
		return 0, err
	}

	if interval == 0 {
		log.Info("TaskManager: Sync interval is zero")
	}

	return interval, nil
}

func Start(q *queue.Queue) {
	var err error
	s, err = gocron.NewScheduler()
	if err != nil {
		log.Fatalf("TaskManager Start: could not create gocron scheduler: %s", err.Error())
	}

	if config.Keys.SyncInterval != "" {
		RegisterSyncService(config.Keys.SyncInterval, q)
	}

	s.Start()
}

func Shutdown() {
	if s != nil {
		s.Shutdown()
	}
}
