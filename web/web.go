package web

import _ "embed"

// Index is the single page that drives the service from a browser.
//
//go:embed index.html
var Index []byte
