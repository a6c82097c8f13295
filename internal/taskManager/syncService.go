// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package taskManager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stridelab/stride-backend/internal/ingest"
	"github.com/stridelab/stride-backend/internal/queue"
	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/pkg/log"

	"github.com/go-co-op/gocron/v2"
)

// RegisterSyncService enqueues a full 30-day sweep for every linked
// account on the configured interval. The sweeps run on the queue
// workers, never in the scheduler goroutine.
func RegisterSyncService(interval string, q *queue.Queue) {
	d, err := parseDuration(interval)
	if err != nil || d == 0 {
		return
	}

	log.Infof("Register sync sweep service with interval %s", interval)
	s.NewJob(gocron.DurationJob(d),
		gocron.NewTask(func() {
			accounts, err := repository.GetUserRepository().ListAccounts()
			if err != nil {
				log.Errorf("sync sweep: listing accounts failed: %v", err)
				return
			}

			now := time.Now().Unix()
			for _, account := range accounts {
				payload, _ := json.Marshal(ingest.SyncAccountPayload{AccountID: account.ID})
				job := queue.Job{
					ID:      fmt.Sprintf("sweep_%d_%d", account.ID, now),
					Name:    ingest.JobSyncAccount,
					Payload: payload,
				}
				if _, err := q.Enqueue(context.Background(), job, queue.DefaultResultTTL); err != nil {
					log.Errorf("sync sweep: enqueue for account %d failed: %v", account.ID, err)
				}
			}
			log.Debugf("sync sweep enqueued for %d accounts", len(accounts))
		}))
}
