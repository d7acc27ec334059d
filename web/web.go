package web

import (
	"embed"
)

//go:embed static/*
var EmbedFS embed.FS

// IndexHTML returns the bundled app shell.
func IndexHTML() []byte {
	data, err := EmbedFS.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	return data
}
