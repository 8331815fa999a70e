package assets

import (
	"embed"
)

// Database migrations
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Login page
//
//go:embed templates/*.html
var Templates embed.FS
