package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/soundcheck/internal/models"
)

var (
	_ list.DefaultItem = artistItem{}
	_ list.DefaultItem = trackItem{}
)

// artistItem wraps [models.ArtistSummary] to implement [list.Item].
type artistItem struct {
	rank   int
	artist models.ArtistSummary
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return fmt.Sprintf("%d. %s", i.rank, i.artist.Name) }
func (i artistItem) Description() string {
	if len(i.artist.Genres) == 0 {
		return "no genres listed"
	}
	return strings.Join(i.artist.Genres, ", ")
}

// trackItem wraps [models.TrackSummary] to implement [list.Item].
type trackItem struct {
	rank  int
	track models.TrackSummary
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return fmt.Sprintf("%d. %s", i.rank, i.track.Name) }
func (i trackItem) Description() string {
	desc := i.track.ArtistNames()
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	return desc
}

func artistItems(artists []models.ArtistSummary) []list.Item {
	items := make([]list.Item, len(artists))
	for i, a := range artists {
		items[i] = artistItem{rank: i + 1, artist: a}
	}
	return items
}

func trackItems(tracks []models.TrackSummary) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{rank: i + 1, track: t}
	}
	return items
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	return l
}
