package subtitles

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nwaples/rardecode/v2"
)

// File is one subtitle extracted from a season-pack archive.
type File struct {
	Name        string
	Content     []byte
	ContentType string
}

// IsArchive reports whether a content type denotes a season-pack archive.
func IsArchive(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "zip") || strings.Contains(ct, "rar")
}

// ExtractEpisode pulls the subtitle for a specific episode out of a zip or
// rar season pack. It fails with a not-found style error when no filename in
// the archive matches the episode.
func ExtractEpisode(content []byte, contentType string, episode int) (*File, error) {
	if strings.Contains(strings.ToLower(contentType), "rar") {
		return extractEpisodeFromRar(content, episode)
	}
	return extractEpisodeFromZip(content, episode)
}

// episodePattern matches episode numbers in release filenames with word
// boundaries: S03E01, s03e01, 3x01, E01 (but not E010 when looking for E01).
func episodePattern(episode int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)(?:s\d+e%02d(?:\D|$)|e%02d(?:\D|$)|\d+x%02d(?:\D|$))`, episode, episode, episode))
}

func extractEpisodeFromZip(content []byte, episode int) (*File, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP archive: %w", err)
	}

	pattern := episodePattern(episode)
	fileCount := 0
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		fileCount++

		name := filepath.Base(f.Name)
		if !pattern.MatchString(name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in ZIP: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from ZIP: %w", f.Name, err)
		}

		return &File{
			Name:        name,
			Content:     data,
			ContentType: ContentTypeForFilename(name),
		}, nil
	}

	return nil, fmt.Errorf("episode %d not found in season pack (searched %d files)", episode, fileCount)
}

func extractEpisodeFromRar(content []byte, episode int) (*File, error) {
	reader, err := rardecode.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open RAR archive: %w", err)
	}

	pattern := episodePattern(episode)
	fileCount := 0
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read RAR archive: %w", err)
		}
		if header.IsDir {
			continue
		}
		fileCount++

		name := filepath.Base(header.Name)
		if !pattern.MatchString(name) {
			continue
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from RAR: %w", header.Name, err)
		}

		return &File{
			Name:        name,
			Content:     data,
			ContentType: ContentTypeForFilename(name),
		}, nil
	}

	return nil, fmt.Errorf("episode %d not found in season pack (searched %d files)", episode, fileCount)
}
