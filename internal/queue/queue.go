// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package queue is a named, Redis-backed job queue with at-least-once
// delivery. Deterministic job ids deduplicate deliveries: an id that
// was enqueued within its TTL window is dropped, so duplicate webhook
// events collapse to one execution.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultName is the queue every sync job lands on.
	DefaultName = "default"

	// DefaultResultTTL is the dedup window of one job id.
	DefaultResultTTL = time.Hour
)

// Job is one unit of work. Name selects the registered handler,
// Payload is handler-specific.
type Job struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

type Queue struct {
	rdb  *redis.Client
	name string
}

// New connects the broker. The connection is verified eagerly so a
// misconfigured REDIS_URL fails at startup, not on first enqueue.
func New(redisURL, name string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to queue broker: %w", err)
	}

	return &Queue{rdb: rdb, name: name}, nil
}

func (q *Queue) listKey() string {
	return "stride:queue:" + q.name
}

func (q *Queue) dedupKey(jobID string) string {
	return "stride:queue:" + q.name + ":job:" + jobID
}

// Enqueue pushes a job unless its id was already seen within
// resultTTL. Returns false when the job was dropped as a duplicate.
func (q *Queue) Enqueue(ctx context.Context, job Job, resultTTL time.Duration) (bool, error) {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}

	fresh, err := q.rdb.SetNX(ctx, q.dedupKey(job.ID), time.Now().Unix(), resultTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserving job id %s: %w", job.ID, err)
	}
	if !fresh {
		return false, nil
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if err := q.rdb.LPush(ctx, q.listKey(), raw).Err(); err != nil {
		return false, fmt.Errorf("enqueueing job %s: %w", job.ID, err)
	}
	return true, nil
}

// requeue puts a failed job back without touching its dedup key, so
// the retry is not mistaken for a duplicate delivery.
func (q *Queue) requeue(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, q.listKey(), raw).Err()
}

// Dequeue blocks up to timeout for the next job. A nil job with nil
// error means the wait timed out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.listKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply: %v", res)
	}

	job := &Job{}
	if err := json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return job, nil
}

// Len reports the queued job count, for monitoring.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.listKey()).Result()
}

func (q *Queue) Close() error {
	return q.rdb.Close()
}
