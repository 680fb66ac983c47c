// Package appfs embeds the files the binaries need at runtime: email templates,
// the common passwords list and the SQL migrations.
package appfs

import "embed"

//go:embed all:assets migrations
var FS embed.FS
