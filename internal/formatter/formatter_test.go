package formatter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/shared"
)

func testExport() *ProfileExport {
	return &ProfileExport{
		Profile: models.ProfileSummary{
			ID:          "user1",
			DisplayName: "Test User",
			Email:       "test@example.com",
			Country:     "US",
			Product:     "premium",
			Followers:   42,
		},
		Artists: []models.ArtistSummary{
			{ID: "artist1", Name: "Artist One", Genres: []string{"rock", "indie"}},
			{ID: "artist2", Name: "Artist Two"},
		},
		Tracks: []models.TrackSummary{
			{
				ID:      "track1",
				Name:    "Song One",
				Artists: []models.ArtistRef{{Name: "Artist One"}, {Name: "Guest"}},
				Album:   models.AlbumRef{Name: "Album One"},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"text", FormatText},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header plus 3 rows, got %d: %s", len(lines), output)
		}
		if lines[0] != "List,Rank,ID,Name,Detail" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != "top_artists,1,artist1,Artist One,rock; indie" {
			t.Errorf("unexpected artist row %q", lines[1])
		}
		if lines[3] != `top_tracks,1,track1,Song One,"Artist One, Guest"` {
			t.Errorf("unexpected track row %q", lines[3])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testExport(), "avatar.jpg")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test User",
			"![Avatar](avatar.jpg)",
			"**Followers**: 42",
			"## Top Artists",
			"1. Artist One (rock, indie)",
			"2. Artist Two\n",
			"1. Artist One, Guest - Song One (Album One)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown with empty lists", func(t *testing.T) {
		export := testExport()
		export.Artists = nil
		export.Tracks = []models.TrackSummary{}

		data, err := ExportToMarkdown(export, "")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if strings.Contains(output, "![Avatar]") {
			t.Error("expected no image reference")
		}
		if !strings.Contains(output, "_No top artists._") || !strings.Contains(output, "_No top tracks._") {
			t.Errorf("expected empty list markers, got:\n%s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"Profile: Test User",
			"Plan: premium",
			"Top Artists: 2",
			"1. Artist One (rock, indie) [artist1]",
			"2. Artist Two [artist2]",
			"Top Tracks: 1",
			"1. Artist One, Guest - Song One [track1]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText falls back to the user id", func(t *testing.T) {
		export := testExport()
		export.Profile.DisplayName = ""

		data, _ := ExportToText(export)
		if !strings.HasPrefix(string(data), "Profile: user1\n") {
			t.Errorf("unexpected header %q", string(data))
		}
	})
}

func TestDownloadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	t.Run("success", func(t *testing.T) {
		data, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/avatar.jpg")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != "image-bytes" {
			t.Errorf("unexpected body %q", data)
		}
	})

	t.Run("non-200", func(t *testing.T) {
		if _, err := DownloadImage(context.Background(), srv.Client(), srv.URL+"/missing.jpg"); err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		if _, err := DownloadImage(context.Background(), nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "me.csv")

		result, err := WriteExport(context.Background(), testExport(), FormatCSV, path, nil, nil)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if result.Path != path {
			t.Errorf("expected path %s, got %s", path, result.Path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.HasPrefix(string(data), "List,Rank,ID,Name,Detail") {
			t.Errorf("unexpected file contents %q", data)
		}
	})

	t.Run("markdown with avatar", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg"))
		}))
		defer srv.Close()

		export := testExport()
		export.Profile.Images = []models.Image{{URL: srv.URL + "/a.jpg"}}
		path := filepath.Join(t.TempDir(), "me.md")

		result, err := WriteExport(context.Background(), export, FormatMarkdown, path, srv.Client(), nil)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if result.CoverImage != filepath.Join(filepath.Dir(path), "me_avatar.jpg") {
			t.Errorf("unexpected cover image path %q", result.CoverImage)
		}

		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), "![Avatar](me_avatar.jpg)") {
			t.Errorf("expected avatar reference, got:\n%s", data)
		}
	})

	t.Run("markdown with failed download still writes", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		export := testExport()
		export.Profile.Images = []models.Image{{URL: srv.URL + "/a.jpg"}}
		path := filepath.Join(t.TempDir(), "me.md")

		var warned error
		result, err := WriteExport(context.Background(), export, FormatMarkdown, path, srv.Client(), func(err error) { warned = err })
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if warned == nil {
			t.Error("expected a download warning")
		}
		if result.CoverImage != "" {
			t.Errorf("expected no cover image, got %q", result.CoverImage)
		}

		data, _ := os.ReadFile(path)
		if strings.Contains(string(data), "![Avatar]") {
			t.Error("expected no image reference")
		}
	})
}
