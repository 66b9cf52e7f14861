// Package subtitles holds content-level helpers shared by the download
// paths: UTF-8 normalization of provider payloads, season-pack archive
// extraction, and filename/content-type mapping.
package subtitles

import (
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"
)

// NormalizeUTF8 reads r and converts its content to UTF-8, detecting the
// source encoding from BOMs, declarations, or heuristics. Subtitle files in
// the wild frequently arrive in legacy single-byte encodings.
func NormalizeUTF8(r io.Reader, contentType string) (string, error) {
	decoded, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", err
	}
	content, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// FilenameFor builds a download filename for a subtitle id based on the
// content type it was served with.
func FilenameFor(nativeID, contentType string) string {
	return nativeID + extensionForContentType(contentType)
}

func extensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)

	// Most specific patterns first to avoid false matches.
	switch {
	case strings.Contains(ct, "zip"):
		return ".zip"
	case strings.Contains(ct, "x-subrip"), strings.Contains(ct, "srt"):
		return ".srt"
	case strings.Contains(ct, "x-ass"), strings.Contains(ct, "/ass"):
		return ".ass"
	case strings.Contains(ct, "vtt"):
		return ".vtt"
	case strings.Contains(ct, "x-sub"):
		return ".sub"
	}
	return ".srt"
}

// ContentTypeForFilename derives the MIME type from a subtitle filename.
func ContentTypeForFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".srt":
		return "application/x-subrip"
	case ".ass":
		return "application/x-ass"
	case ".vtt":
		return "text/vtt"
	case ".sub":
		return "application/x-sub"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
