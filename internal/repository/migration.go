// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/stridelab/stride-backend/pkg/log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const Version uint = 1

//go:embed migrations/*
var migrationFiles embed.FS

func checkDBVersion(backend string, db *sql.DB) {
	var m *migrate.Migrate

	switch backend {
	case "sqlite3":
		driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			log.Fatal(err)
		}
		d, err := iofs.New(migrationFiles, "migrations/sqlite3")
		if err != nil {
			log.Fatal(err)
		}

		m, err = migrate.NewWithInstance("iofs", d, "sqlite3", driver)
		if err != nil {
			log.Fatal(err)
		}
	case "postgres":
		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			log.Fatal(err)
		}
		d, err := iofs.New(migrationFiles, "migrations/postgres")
		if err != nil {
			log.Fatal(err)
		}

		m, err = migrate.NewWithInstance("iofs", d, "postgres", driver)
		if err != nil {
			log.Fatal(err)
		}
	}

	v, dirty, err := m.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			log.Warn("Legacy database without version or missing database file!")
		} else {
			log.Fatal(err)
		}
	}

	if dirty {
		log.Fatalf("Database dirty at version %d, resolve manually before starting", v)
	}

	if v < Version {
		log.Fatalf("Unsupported database version %d, need %d. Run with --migrate-db first.", v, Version)
	}
	if v > Version {
		log.Fatalf("Database version %d newer than supported %d. Use the matching binary or downgrade with an external migrate tool.", v, Version)
	}
}

// MigrateDB brings the schema up to the embedded migration set.
func MigrateDB(backend string, db string) error {
	var m *migrate.Migrate

	switch backend {
	case "sqlite3":
		d, err := iofs.New(migrationFiles, "migrations/sqlite3")
		if err != nil {
			return err
		}

		m, err = migrate.NewWithSourceInstance("iofs", d, fmt.Sprintf("sqlite3://%s?_foreign_keys=on", db))
		if err != nil {
			return err
		}
	case "postgres":
		d, err := iofs.New(migrationFiles, "migrations/postgres")
		if err != nil {
			return err
		}

		m, err = migrate.NewWithSourceInstance("iofs", d, db)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", backend)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
