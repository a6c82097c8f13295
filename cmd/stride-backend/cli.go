// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagMigrateDB, flagRevertDB, flagVersion, flagWorker bool
	flagEnvFile, flagLogLevel                            string
	flagLogDateTime                                      bool
)

func cliInit() {
	flag.BoolVar(&flagMigrateDB, "migrate-db", false, "Migrate database to the supported version and exit")
	flag.BoolVar(&flagRevertDB, "revert-db", false, "Not supported: exits with an error (revert with an external migrate tool)")
	flag.BoolVar(&flagVersion, "version", false, "Print version and exit")
	flag.BoolVar(&flagWorker, "worker", false, "Also run queue workers in this process")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.StringVar(&flagEnvFile, "env", ".env", "Specify the environment file to load")
	flag.StringVar(&flagLogLevel, "loglevel", "", "Sets the logging level: `debug,info,warn,err,crit` (overrides LOGLEVEL)")
	flag.Parse()
}
