package router

import (
	"net/http"
	"path"
	"strings"
)

// Class is the routing classification of an inbound request.
type Class string

const (
	// ClassStatic covers application shell assets (scripts, styles, fonts).
	ClassStatic Class = "static"

	// ClassAPI covers requests to the upstream service allow-list.
	ClassAPI Class = "api"

	// ClassImage covers image payloads.
	ClassImage Class = "image"

	// ClassNavigation covers HTML document fetches (the default class).
	ClassNavigation Class = "navigation"
)

var staticExtensions = map[string]bool{
	".js":          true,
	".css":         true,
	".html":        true,
	".woff":        true,
	".woff2":       true,
	".ttf":         true,
	".map":         true,
	".webmanifest": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".ico":  true,
	".avif": true,
}

var staticPaths = map[string]bool{
	"/manifest.json": true,
}

// Classifier assigns each request exactly one class, evaluated in fixed
// precedence order: static asset, API request, image request, navigation.
type Classifier struct {
	apiHosts map[string]bool
}

// NewClassifier creates a classifier with the given upstream host allow-list.
func NewClassifier(apiHosts []string) *Classifier {
	hosts := make(map[string]bool, len(apiHosts))
	for _, h := range apiHosts {
		hosts[strings.ToLower(h)] = true
	}
	return &Classifier{apiHosts: hosts}
}

// Classify returns the class of a request.
func (c *Classifier) Classify(req *http.Request) Class {
	p := req.URL.Path
	ext := strings.ToLower(path.Ext(p))

	if staticExtensions[ext] || staticPaths[p] {
		return ClassStatic
	}

	host := strings.ToLower(req.URL.Hostname())
	if c.apiHosts[host] || strings.HasPrefix(p, "/api/") {
		return ClassAPI
	}

	if imageExtensions[ext] {
		return ClassImage
	}

	return ClassNavigation
}
