// Package classify maps filenames and MIME types onto content categories.
package classify

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"ownership/internal/fingerprint"
)

var extensionCategories = map[string]fingerprint.Category{
	// text
	".txt":      fingerprint.CategoryText,
	".md":       fingerprint.CategoryText,
	".markdown": fingerprint.CategoryText,
	".rst":      fingerprint.CategoryText,
	".csv":      fingerprint.CategoryText,
	".tsv":      fingerprint.CategoryText,
	".log":      fingerprint.CategoryText,
	".rtf":      fingerprint.CategoryText,
	".html":     fingerprint.CategoryText,
	".htm":      fingerprint.CategoryText,
	".tex":      fingerprint.CategoryText,
	".srt":      fingerprint.CategoryText,
	".vtt":      fingerprint.CategoryText,

	// code
	".go":    fingerprint.CategoryCode,
	".py":    fingerprint.CategoryCode,
	".js":    fingerprint.CategoryCode,
	".mjs":   fingerprint.CategoryCode,
	".cjs":   fingerprint.CategoryCode,
	".jsx":   fingerprint.CategoryCode,
	".ts":    fingerprint.CategoryCode,
	".tsx":   fingerprint.CategoryCode,
	".java":  fingerprint.CategoryCode,
	".kt":    fingerprint.CategoryCode,
	".scala": fingerprint.CategoryCode,
	".c":     fingerprint.CategoryCode,
	".h":     fingerprint.CategoryCode,
	".cc":    fingerprint.CategoryCode,
	".cpp":   fingerprint.CategoryCode,
	".hpp":   fingerprint.CategoryCode,
	".cs":    fingerprint.CategoryCode,
	".rs":    fingerprint.CategoryCode,
	".rb":    fingerprint.CategoryCode,
	".php":   fingerprint.CategoryCode,
	".swift": fingerprint.CategoryCode,
	".sol":   fingerprint.CategoryCode,
	".sh":    fingerprint.CategoryCode,
	".bash":  fingerprint.CategoryCode,
	".sql":   fingerprint.CategoryCode,
	".lua":   fingerprint.CategoryCode,
	".json":  fingerprint.CategoryCode,
	".yaml":  fingerprint.CategoryCode,
	".yml":   fingerprint.CategoryCode,
	".toml":  fingerprint.CategoryCode,
	".xml":   fingerprint.CategoryCode,
	".css":   fingerprint.CategoryCode,

	// image
	".png":  fingerprint.CategoryImage,
	".jpg":  fingerprint.CategoryImage,
	".jpeg": fingerprint.CategoryImage,
	".gif":  fingerprint.CategoryImage,
	".bmp":  fingerprint.CategoryImage,
	".webp": fingerprint.CategoryImage,
	".tif":  fingerprint.CategoryImage,
	".tiff": fingerprint.CategoryImage,
	".svg":  fingerprint.CategoryImage,
	".heic": fingerprint.CategoryImage,
	".avif": fingerprint.CategoryImage,

	// audio
	".mp3":  fingerprint.CategoryAudio,
	".wav":  fingerprint.CategoryAudio,
	".flac": fingerprint.CategoryAudio,
	".ogg":  fingerprint.CategoryAudio,
	".oga":  fingerprint.CategoryAudio,
	".opus": fingerprint.CategoryAudio,
	".m4a":  fingerprint.CategoryAudio,
	".aac":  fingerprint.CategoryAudio,
	".aiff": fingerprint.CategoryAudio,
	".wma":  fingerprint.CategoryAudio,

	// video
	".mp4":  fingerprint.CategoryVideo,
	".m4v":  fingerprint.CategoryVideo,
	".mkv":  fingerprint.CategoryVideo,
	".mov":  fingerprint.CategoryVideo,
	".avi":  fingerprint.CategoryVideo,
	".webm": fingerprint.CategoryVideo,
	".wmv":  fingerprint.CategoryVideo,
	".flv":  fingerprint.CategoryVideo,
	".mpeg": fingerprint.CategoryVideo,
	".mpg":  fingerprint.CategoryVideo,
}

// applicationSubtypes lists the application/* MIME subtypes that still map to
// a category; everything else under application/ is unsupported.
var applicationSubtypes = map[string]fingerprint.Category{
	"json":          fingerprint.CategoryCode,
	"javascript":    fingerprint.CategoryCode,
	"x-javascript":  fingerprint.CategoryCode,
	"typescript":    fingerprint.CategoryCode,
	"x-python":      fingerprint.CategoryCode,
	"x-python-code": fingerprint.CategoryCode,
	"x-sh":          fingerprint.CategoryCode,
	"x-shellscript": fingerprint.CategoryCode,
	"xml":           fingerprint.CategoryCode,
	"sql":           fingerprint.CategoryCode,
	"toml":          fingerprint.CategoryCode,
	"yaml":          fingerprint.CategoryCode,
	"x-yaml":        fingerprint.CategoryCode,
	"rtf":           fingerprint.CategoryText,
	"x-subrip":      fingerprint.CategoryText,
	"xhtml+xml":     fingerprint.CategoryText,
	"ogg":           fingerprint.CategoryAudio,
	"x-matroska":    fingerprint.CategoryVideo,
	"x-httpd-php":   fingerprint.CategoryCode,
	"x-ruby":        fingerprint.CategoryCode,
	"x-perl":        fingerprint.CategoryCode,
	"x-tex":         fingerprint.CategoryText,
	"x-latex":       fingerprint.CategoryText,
}

// Classify maps a filename and optional MIME type to a content category. The
// lower-cased extension wins; the MIME type is consulted only when the
// extension is unknown. MIME parameters such as charset are ignored.
func Classify(filename, mimeType string) (fingerprint.Category, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if category, ok := extensionCategories[ext]; ok {
		return category, nil
	}
	if category, ok := fromMIME(mimeType); ok {
		return category, nil
	}
	return "", fingerprint.Wrap(fingerprint.ErrUnsupportedContent, "classify", "",
		fmt.Sprintf("cannot classify %q (mime %q)", filename, mimeType), nil)
}

// Detect classifies content when the caller has no MIME type by sniffing the
// leading bytes. An explicit extension still takes precedence.
func Detect(filename string, data []byte) (fingerprint.Category, error) {
	sniffed := ""
	if len(data) > 0 {
		sniffed = http.DetectContentType(data)
	}
	return Classify(filename, sniffed)
}

// Extensions returns the extension table keys for the given category, mostly
// for help output.
func Extensions(category fingerprint.Category) []string {
	var out []string
	for ext, c := range extensionCategories {
		if c == category {
			out = append(out, ext)
		}
	}
	return out
}

func fromMIME(mimeType string) (fingerprint.Category, bool) {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	}
	top, sub, _ := strings.Cut(mediaType, "/")
	switch top {
	case "text":
		if sub == "x-python" || sub == "javascript" || sub == "x-go" || sub == "x-c" || sub == "x-java-source" {
			return fingerprint.CategoryCode, true
		}
		return fingerprint.CategoryText, true
	case "image":
		return fingerprint.CategoryImage, true
	case "audio":
		return fingerprint.CategoryAudio, true
	case "video":
		return fingerprint.CategoryVideo, true
	case "application":
		if category, ok := applicationSubtypes[sub]; ok {
			return category, true
		}
	}
	return "", false
}
