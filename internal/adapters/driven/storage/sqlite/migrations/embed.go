// Package migrations ships the store schema as numbered NNN_name.up.sql
// files, applied once each in version order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
