package reporter

import "embed"

//go:embed assets/*
var assetsFS embed.FS

//go:embed templates/*.tmpl templates/commands/*.tmpl
var templatesFS embed.FS
