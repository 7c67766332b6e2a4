package services

import (
	"path"
	"regexp"
	"strings"
)

// allowedImageExtensions is the accepted upload format allow-list.
var allowedImageExtensions = []string{"jpg", "jpe", "jpeg", "png", "gif", "svg", "bmp", "webp"}

// imageNameRE accepts a plain filename ending in an allow-listed
// extension. Client-supplied names are never trusted beyond this shape.
var imageNameRE = regexp.MustCompile(
	`^[a-zA-Z0-9][a-zA-Z0-9_()\-.]*\.(` + strings.Join(allowedImageExtensions, "|") + `)$`)

// SafeImageName reports whether a client-supplied filename may be used
// as a storage key component.
func SafeImageName(name string) bool {
	return imageNameRE.MatchString(path.Base(name)) && path.Base(name) == name
}

// ImageExtension returns the lower-cased extension of an accepted image
// filename, including the dot.
func ImageExtension(name string) string {
	return strings.ToLower(path.Ext(name))
}
