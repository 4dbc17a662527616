package shoes

import "embed"

// Content holds the embedded dashboard templates.
//
//go:embed templates
var Content embed.FS
