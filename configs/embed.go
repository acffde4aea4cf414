// Package configs embeds the default configuration files. A workspace
// configs/ directory with the same file names takes precedence.
package configs

import "embed"

//go:embed main_config.ini databank_headers.ini databank_filenames.json analysis.yaml
var FS embed.FS
