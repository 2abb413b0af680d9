// Package web embeds the dashboard's HTML templates and static assets so
// the server ships as a single binary.
//
// Usage in the API server:
//
//	import "github.com/seenimoa/indexdash/web"
//	static := web.StaticFS()  // io/fs.FS rooted at static/
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed all:static
var static embed.FS

// TemplatesFS returns a filesystem rooted at the embedded templates/ directory.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		log.Fatalf("web.TemplatesFS: %v", err)
	}
	return sub
}

// StaticFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}
