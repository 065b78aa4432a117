// Package web holds the browser client served at the site root.
package web

import (
	"embed"
	"net/http"
)

//go:embed index.html style.css upload.js
var assets embed.FS

// FileSystem exposes the embedded client files.
func FileSystem() http.FileSystem {
	return http.FS(assets)
}
