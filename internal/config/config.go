// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ProgramConfig is the process configuration, read from the
// environment (optionally seeded from a .env file).
type ProgramConfig struct {
	// Address where the http server will listen on (for example ':8080').
	Addr string

	// Tags logging/verbosity ('local', 'staging', 'production').
	AppEnv string

	AppBaseURL string
	APIBaseURL string

	// DATABASE_URL. 'postgres://...' selects the Postgres driver,
	// anything else is treated as a sqlite3 file path.
	DatabaseURL string

	// Queue broker, e.g. 'redis://localhost:6379/0'.
	RedisURL string

	StravaClientID           string
	StravaClientSecret       string
	StravaRedirectURI        string
	StravaWebhookVerifyToken string
	StravaWebhookCallbackURL string

	// Interval for the periodic full-sync sweep ('30m', '2h'); empty
	// disables the sweep.
	SyncInterval string

	// Rewrite a stale 'Easy Run' class when the detail read
	// reclassifies the activity differently.
	LazyClassRepair bool

	LogLevel   string
	LogDate    bool
	NumWorkers int
}

// Keys is the process-wide configuration, populated by Init.
var Keys ProgramConfig = ProgramConfig{
	Addr:            ":8080",
	AppEnv:          "local",
	AppBaseURL:      "http://localhost:3000",
	APIBaseURL:      "http://localhost:8000",
	RedisURL:        "redis://localhost:6379/0",
	LazyClassRepair: true,
	LogLevel:        "info",
	NumWorkers:      2,
}

// Init loads the environment into Keys. A missing .env file is fine,
// a missing DATABASE_URL is not.
func Init(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	readString("ADDR", &Keys.Addr)
	readString("APP_ENV", &Keys.AppEnv)
	readString("APP_BASE_URL", &Keys.AppBaseURL)
	readString("API_BASE_URL", &Keys.APIBaseURL)
	readString("DATABASE_URL", &Keys.DatabaseURL)
	readString("REDIS_URL", &Keys.RedisURL)
	readString("STRAVA_CLIENT_ID", &Keys.StravaClientID)
	readString("STRAVA_CLIENT_SECRET", &Keys.StravaClientSecret)
	readString("STRAVA_REDIRECT_URI", &Keys.StravaRedirectURI)
	readString("STRAVA_WEBHOOK_VERIFY_TOKEN", &Keys.StravaWebhookVerifyToken)
	readString("STRAVA_WEBHOOK_CALLBACK_URL", &Keys.StravaWebhookCallbackURL)
	readString("SYNC_INTERVAL", &Keys.SyncInterval)
	readString("LOGLEVEL", &Keys.LogLevel)
	readBool("LOGDATE", &Keys.LogDate)
	readBool("LAZY_CLASS_REPAIR", &Keys.LazyClassRepair)
	readInt("NUM_WORKERS", &Keys.NumWorkers)

	if Keys.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// DBDriver derives the sql driver name from DatabaseURL.
func (c *ProgramConfig) DBDriver() string {
	if strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return "postgres"
	}
	return "sqlite3"
}

func readString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func readBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			*dst = b
		}
	}
}

func readInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			*dst = n
		}
	}
}
