// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	sq "github.com/Masterminds/squirrel"
)

// qb returns a statement builder with the placeholder format of the
// active driver. sqlite3 uses '?', Postgres wants '$1'.
func qb() sq.StatementBuilderType {
	if GetConnection().Driver == "postgres" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder
}
