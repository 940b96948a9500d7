package marketwebui

import "embed"

// TemplateFS contains the embedded HTML templates used for rendering the dashboard. These templates
// are organized in a directory structure that separates layouts, pages, and partial views.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the embedded static assets such as the EventSource client script and the
// stylesheet required by the dashboard.
//
//go:embed static/*
var StaticFS embed.FS
