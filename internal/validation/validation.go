package validation

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyFilename   = errors.New("filename is empty")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// AllowedExtensions is the fixed allow-list of image extensions, lower-case and without the dot.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"webp": true,
}

// AllowedFile reports whether name carries an extension from AllowedExtensions (case-insensitive).
// Only the text after the last dot counts, so "archive.png.exe" is rejected and ".png" is accepted.
func AllowedFile(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	return AllowedExtensions[strings.ToLower(name[i+1:])]
}

// ValidateUpload checks a client supplied filename before anything touches storage.
func ValidateUpload(name string) error {
	if name == "" {
		return ErrEmptyFilename
	}
	if !AllowedFile(name) {
		return ErrUnsupportedType
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename turns an arbitrary client filename into a safe single path segment:
//   - unicode is decomposed and folded to ASCII
//   - path separators become spaces and whitespace runs become "_"
//   - anything outside [A-Za-z0-9_.-] is dropped
//   - leading and trailing "." and "_" are trimmed
//
// The result may be empty when nothing safe remains.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	ascii := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 128 {
			ascii = append(ascii, r)
		}
	}
	name = string(ascii)

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// SplitName splits a sanitized filename into stem and extension (extension keeps its dot and case).
func SplitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}
