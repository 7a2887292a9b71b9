package constants

import "strings"

// AllowedExtensions holds the accepted input image extensions for extraction.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MIMEForExt maps a (normalized) image extension to its MIME type.
// Unknown extensions map to image/jpeg, which the vision API tolerates.
func MIMEForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}
