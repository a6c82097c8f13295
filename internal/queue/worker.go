// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stridelab/stride-backend/internal/strava"
	"github.com/stridelab/stride-backend/pkg/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	dequeueTimeout = 5 * time.Second
	jobTimeout     = 5 * time.Minute
	maxAttempts    = 3

	// Backoff after a provider 429 before the job re-enters the list.
	rateLimitBackoff = time.Minute
)

var jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stride_queue_jobs_total",
	Help: "Processed queue jobs by name and outcome.",
}, []string{"name", "outcome"})

var jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "stride_queue_job_duration_seconds",
	Help:    "Wall-clock duration of queue jobs.",
	Buckets: prometheus.ExponentialBuckets(0.1, 3, 8),
}, []string{"name"})

// HandlerFunc executes one job. Handlers must be idempotent: delivery
// is at-least-once.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Worker drains one queue. Workers are interchangeable; run as many
// as the provider rate budget tolerates.
type Worker struct {
	queue    *Queue
	handlers map[string]HandlerFunc
}

func NewWorker(q *Queue) *Worker {
	return &Worker{queue: q, handlers: map[string]HandlerFunc{}}
}

func (w *Worker) Register(name string, fn HandlerFunc) {
	w.handlers[name] = fn
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Infof("queue worker started on %q", w.queue.name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			log.Errorf("dequeue failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	handler, ok := w.handlers[job.Name]
	if !ok {
		log.Warnf("job %s: no handler for %q, dropping", job.ID, job.Name)
		jobsTotal.WithLabelValues(job.Name, "dropped").Inc()
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := handler(jobCtx, job.Payload)
	jobDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())

	if err == nil {
		jobsTotal.WithLabelValues(job.Name, "ok").Inc()
		log.Debugf("job %s done in %s", job.ID, time.Since(start))
		return
	}

	if errors.Is(err, strava.ErrRateLimited) && job.Attempt+1 < maxAttempts {
		log.Warnf("job %s rate limited, retrying in %s", job.ID, rateLimitBackoff)
		jobsTotal.WithLabelValues(job.Name, "rate_limited").Inc()
		retry := *job
		retry.Attempt++
		time.Sleep(rateLimitBackoff)
		if err := w.queue.requeue(ctx, retry); err != nil {
			log.Errorf("requeue of %s failed: %v", job.ID, err)
		}
		return
	}

	if job.Attempt+1 < maxAttempts {
		log.Warnf("job %s failed (attempt %d): %v", job.ID, job.Attempt+1, err)
		jobsTotal.WithLabelValues(job.Name, "retried").Inc()
		retry := *job
		retry.Attempt++
		if err := w.queue.requeue(ctx, retry); err != nil {
			log.Errorf("requeue of %s failed: %v", job.ID, err)
		}
		return
	}

	jobsTotal.WithLabelValues(job.Name, "failed").Inc()
	log.Errorf("job %s failed permanently: %v", job.ID, err)
}
