// Package web embeds the browser UI assets.
package web

import "embed"

// TemplatesFS embeds the HTML templates for server-side rendering.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static/*
var StaticFS embed.FS
