// Package ui embeds the map page served at the site root. The page hosts the
// MapLibre instance driven through the engine bridge.
package ui

import "embed"

// DistFS holds the built page.
//
//go:embed dist
var DistFS embed.FS
