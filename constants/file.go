package constants

import "strings"

// Document formats understood by the text recognizer.
const (
	IMAGE = "IMAGE"
	PDF   = "PDF"
	DOCX  = "DOCX"
)

// FileTypes holds every supported document format.
var FileTypes = []string{IMAGE, PDF, DOCX}

// AllowedExtensions maps a normalized extension to its document format.
var AllowedExtensions = map[string]string{
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"bmp":  IMAGE,
	"pdf":  PDF,
	"docx": DOCX,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns the document format for ext, or "" when unsupported.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}
