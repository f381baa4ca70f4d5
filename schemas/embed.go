// Package schemas embeds the JSON Schema files that describe the system's artifacts.
package schemas

import "embed"

// Schema file names
const (
	Document  = "document.schema.json"
	Proposals = "proposals.schema.json"
	Config    = "config.schema.json"
)

//go:embed *.schema.json
var FS embed.FS
