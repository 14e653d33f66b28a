// Package assets embeds the email templates and the SQL migrations.
package assets

import "embed"

//go:embed all:templates migrations
var FS embed.FS

const (
	EmailTemplatesDir = "templates/email"
	MigrationsDir     = "migrations"
)
