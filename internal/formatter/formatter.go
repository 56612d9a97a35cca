// package formatter renders the aggregated profile view as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// Format selects an export encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts text, csv, markdown (or md).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used by [WriteExport].
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// ProfileExport is a loaded profile view.
type ProfileExport struct {
	Profile models.ProfileSummary  `json:"profile"`
	Artists []models.ArtistSummary `json:"top_artists"`
	Tracks  []models.TrackSummary  `json:"top_tracks"`
}

// ExportToCSV writes one row per list entry with columns: List, Rank, ID, Name, Detail
func ExportToCSV(export *ProfileExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"List", "Rank", "ID", "Name", "Detail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, artist := range export.Artists {
		record := []string{"top_artists", strconv.Itoa(i + 1), artist.ID, artist.Name, strings.Join(artist.Genres, "; ")}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	for i, track := range export.Tracks {
		record := []string{"top_tracks", strconv.Itoa(i + 1), track.ID, track.Name, track.ArtistNames()}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the profile with an optional avatar image reference
func ExportToMarkdown(export *ProfileExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Profile

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Name()))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Avatar](%s)\n\n", imageFilename))
	}

	if p.Email != "" {
		buf.WriteString(fmt.Sprintf("**Email**: %s\n", p.Email))
	}
	if p.Product != "" {
		buf.WriteString(fmt.Sprintf("**Plan**: %s\n", p.Product))
	}
	buf.WriteString(fmt.Sprintf("**Followers**: %d\n\n", p.Followers))

	buf.WriteString("## Top Artists\n\n")
	if len(export.Artists) == 0 {
		buf.WriteString("_No top artists._\n")
	}
	for i, artist := range export.Artists {
		genres := ""
		if len(artist.Genres) > 0 {
			genres = fmt.Sprintf(" (%s)", strings.Join(artist.Genres, ", "))
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s\n", i+1, artist.Name, genres))
	}

	buf.WriteString("\n## Top Tracks\n\n")
	if len(export.Tracks) == 0 {
		buf.WriteString("_No top tracks._\n")
	}
	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.ArtistNames(), track.Name, albumPart))
	}

	return buf.Bytes(), nil
}

// ExportToText renders the profile as the plain text printed by the CLI
func ExportToText(export *ProfileExport) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Profile

	buf.WriteString(fmt.Sprintf("Profile: %s\n", p.Name()))
	if p.Email != "" {
		buf.WriteString(fmt.Sprintf("Email: %s\n", p.Email))
	}
	if p.Country != "" {
		buf.WriteString(fmt.Sprintf("Country: %s\n", p.Country))
	}
	if p.Product != "" {
		buf.WriteString(fmt.Sprintf("Plan: %s\n", p.Product))
	}
	buf.WriteString(fmt.Sprintf("Followers: %d\n", p.Followers))

	buf.WriteString(fmt.Sprintf("\nTop Artists: %d\n", len(export.Artists)))
	for i, artist := range export.Artists {
		buf.WriteString(fmt.Sprintf("%d. %s", i+1, artist.Name))
		if len(artist.Genres) > 0 {
			buf.WriteString(fmt.Sprintf(" (%s)", strings.Join(artist.Genres, ", ")))
		}
		buf.WriteString(fmt.Sprintf(" [%s]\n", artist.ID))
	}

	buf.WriteString(fmt.Sprintf("\nTop Tracks: %d\n", len(export.Tracks)))
	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, track.ArtistNames(), track.Name, track.ID))
	}

	return buf.Bytes(), nil
}

// Render encodes export in format. Markdown output carries no image.
func Render(export *ProfileExport, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export, "")
	default:
		return ExportToText(export)
	}
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ExportResult lists the files created by [WriteExport].
type ExportResult struct {
	Path       string
	CoverImage string
}

// WriteExport writes export to path in format. Defaults to {profile.ID}_profile plus the format extension.
//
// Markdown exports download the first profile image next to the file when client is non-nil.
// A failed download is reported through warn and the export is written without the image.
func WriteExport(ctx context.Context, export *ProfileExport, format Format, path string, client *http.Client, warn func(error)) (*ExportResult, error) {
	if path == "" {
		path = export.Profile.ID + "_profile" + format.Extension()
	}
	if warn == nil {
		warn = func(error) {}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ExportResult{Path: path}

	var data []byte
	var err error
	if format == FormatMarkdown {
		var imageFilename string
		if imageURL := models.FirstImage(export.Profile.Images); imageURL != "" && client != nil {
			if imageData, derr := DownloadImage(ctx, client, imageURL); derr != nil {
				warn(derr)
			} else {
				imageFilename = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_avatar.jpg"
				imagePath := filepath.Join(dir, imageFilename)
				if werr := os.WriteFile(imagePath, imageData, 0644); werr != nil {
					warn(fmt.Errorf("failed to save avatar image: %w", werr))
					imageFilename = ""
				} else {
					result.CoverImage = imagePath
				}
			}
		}
		data, err = ExportToMarkdown(export, imageFilename)
	} else {
		data, err = Render(export, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	return result, nil
}
