package utils

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// FileNameFromResponse derives the name to store a fetched resource under.
// A well-formed Content-Disposition filename wins; otherwise the last path
// segment of the URL is used, falling back to "download".
func FileNameFromResponse(contentDisposition, rawURL string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := SanitizeFileName(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if name := SanitizeFileName(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return "download"
}

// SanitizeFileName strips path separators and traversal from a file name.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
