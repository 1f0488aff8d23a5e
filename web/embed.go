// Package web carries the site's templates and assets inside the binary.
package web

import "embed"

// Templates holds layouts, partials and the public, hub and admin pages.
//
//go:embed templates
var Templates embed.FS

// Static holds the stylesheet served under /static/.
//
//go:embed static
var Static embed.FS
