package promptgallery

import _ "embed"

// placeholderSVG is served at the placeholder image path when the static
// directory does not provide its own.
//
//go:embed embedded/placeholder.svg
var placeholderSVG []byte
