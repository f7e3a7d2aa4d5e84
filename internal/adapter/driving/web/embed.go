package web

import "embed"

// StaticFS holds the embedded static assets (guard script, stylesheet).
//
//go:embed static/*
var StaticFS embed.FS
