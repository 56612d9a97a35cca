package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/soundcheck/internal/guard"
	"github.com/desertthunder/soundcheck/internal/models"
	"github.com/desertthunder/soundcheck/internal/profile"
	"github.com/desertthunder/soundcheck/internal/session"
	"github.com/desertthunder/soundcheck/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LandingView ViewState = iota
	ProfileView
	ErrorView
)

// Session is what the TUI needs from [session.Manager].
type Session interface {
	State() session.State
	Logout(ctx context.Context) error
}

// focus selects which list receives navigation keys.
type focus int

const (
	focusArtists focus = iota
	focusTracks
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	session    Session
	guard      *guard.Guard
	aggregator *profile.Aggregator
	detail     *profile.DetailFetcher
	updates    <-chan profile.View
	current    profile.View
	artistList list.Model
	trackList  list.Model
	focus      focus
	detailOpen bool
	spinner    spinner.Model
	width      int
	height     int
	help       help.Model
	keys       keyMap

	loginRequested bool
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, sess Session, g *guard.Guard, agg *profile.Aggregator, detail *profile.DetailFetcher) *Model {
	if g == nil {
		g = guard.New()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:        ctx,
		view:       LandingView,
		session:    sess,
		guard:      g,
		aggregator: agg,
		detail:     detail,
		artistList: newList("Top Artists"),
		trackList:  newList("Top Tracks"),
		spinner:    sp,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// LoginRequested reports whether the user asked to log in; the caller runs the browser flow after the program exits.
func (m *Model) LoginRequested() bool {
	return m.loginRequested
}

// CurrentView returns the active view.
func (m *Model) CurrentView() ViewState {
	return m.view
}

// Init navigates to the profile; the guard sends unauthenticated sessions to the landing view.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.navigate(guard.Profile))
}

// navigate runs the guard for dest and switches view accordingly.
func (m *Model) navigate(dest guard.Destination) tea.Cmd {
	decision := m.guard.Resolve(dest, m.session.State())
	if !decision.Allow {
		dest = decision.Redirect
	}

	switch dest {
	case guard.Profile:
		m.view = ProfileView
		return m.startLoad()
	default:
		m.view = LandingView
		m.updates = nil
		m.detailOpen = false
		return nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LandingView:
			return m.handleLandingKeys(msg)
		case ProfileView:
			return m.handleProfileKeys(msg)
		case ErrorView:
			return m.handleErrorKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case viewUpdateMsg:
		if msg.ch == m.updates {
			m.applyView(msg.view)
		}
		return m, waitForView(msg.ch)

	case loadDoneMsg:
		if msg.ch == m.updates {
			m.updates = nil
		}
		return m, nil

	case detailMsg:
		return m, nil

	case SessionChangedMsg:
		return m, m.navigate(guard.Profile)

	case logoutMsg:
		m.updates = nil
		m.aggregator.Reset()
		m.detail.Close()
		m.current = profile.View{}
		m.artistList.SetItems(nil)
		m.trackList.SetItems(nil)
		return m, m.navigate(guard.Landing)
	}

	return m.updateLists(msg)
}

func (m *Model) applyView(v profile.View) {
	if d := m.guard.Resolve(guard.Profile, m.session.State()); !d.Allow {
		m.navigate(d.Redirect)
		return
	}
	m.current = v
	if v.Status == profile.Error {
		m.view = ErrorView
		return
	}
	m.view = ProfileView
	m.artistList.SetItems(artistItems(v.Artists))
	m.trackList.SetItems(trackItems(v.Tracks))
}

func (m *Model) resizeLists() {
	w := max((m.width-8)/2, 20)
	h := max(m.height-14, 5)
	m.artistList.SetSize(w, h)
	m.trackList.SetSize(w, h)
}

func (m *Model) handleLandingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.login):
		m.loginRequested = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleProfileKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detailOpen {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.detail.Close()
			m.detailOpen = false
		case key.Matches(msg, m.keys.enter):
			return m, m.reopenDetail()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.refresh):
		return m, m.navigate(guard.Profile)
	case key.Matches(msg, m.keys.tab):
		if m.focus == focusArtists {
			m.focus = focusTracks
		} else {
			m.focus = focusArtists
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		return m, m.openSelected()
	}

	var cmd tea.Cmd
	if m.focus == focusArtists {
		m.artistList, cmd = m.artistList.Update(msg)
	} else {
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.refresh):
		return m, m.navigate(guard.Profile)
	case key.Matches(msg, m.keys.login) && m.session.State() != session.Authenticated:
		m.loginRequested = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ProfileView {
		return m, nil
	}
	var cmd tea.Cmd
	if m.focus == focusArtists {
		m.artistList, cmd = m.artistList.Update(msg)
	} else {
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// startLoad runs the aggregator in the background and streams its updates through a fresh channel.
func (m *Model) startLoad() tea.Cmd {
	// Load notifies at most four times (loading, ready, two lists).
	updates := make(chan profile.View, 4)
	m.updates = updates
	m.detailOpen = false
	m.detail.Close()

	go func() {
		m.aggregator.Load(m.ctx, func(v profile.View) { updates <- v })
		close(updates)
	}()

	return waitForView(updates)
}

func waitForView(ch <-chan profile.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return loadDoneMsg{ch: ch}
		}
		return viewUpdateMsg{view: v, ch: ch}
	}
}

func (m *Model) selected() (models.EntityKind, string, bool) {
	if m.focus == focusArtists {
		if it, ok := m.artistList.SelectedItem().(artistItem); ok {
			return models.KindArtist, it.artist.ID, true
		}
		return "", "", false
	}
	if it, ok := m.trackList.SelectedItem().(trackItem); ok {
		return models.KindTrack, it.track.ID, true
	}
	return "", "", false
}

func (m *Model) openSelected() tea.Cmd {
	kind, id, ok := m.selected()
	if !ok {
		return nil
	}
	return m.openDetail(kind, id)
}

func (m *Model) reopenDetail() tea.Cmd {
	s := m.detail.State()
	if s.Err == nil || s.ID == "" {
		return nil
	}
	return m.openDetail(s.Kind, s.ID)
}

func (m *Model) openDetail(kind models.EntityKind, id string) tea.Cmd {
	if d := m.guard.Resolve(guard.Detail, m.session.State()); !d.Allow {
		return m.navigate(d.Redirect)
	}

	m.detailOpen = true
	ctx, fetcher := m.ctx, m.detail
	return func() tea.Msg {
		d, err := fetcher.Open(ctx, kind, id)
		return detailMsg{detail: d, err: err}
	}
}

func (m *Model) logout() tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		return logoutMsg{err: sess.Logout(ctx)}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LandingView:
		return m.renderLanding()
	case ErrorView:
		return m.renderError()
	case ProfileView:
		if m.detailOpen {
			return m.renderDetail()
		}
		return m.renderProfile()
	default:
		return ""
	}
}

func (m *Model) renderLanding() string {
	title := styles.title.Render("soundcheck")
	body := "See your Spotify profile, top artists and top tracks.\n\nYou are not logged in."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderError() string {
	msg := "Something went wrong"
	if m.current.Err != nil {
		msg = m.current.Err.Error()
	}
	body := styles.err.Render(msg)

	hint := "Log out and sign in again to refresh your access."
	if errors.Is(m.current.Err, shared.ErrNotAuthenticated) {
		hint = "Log in to continue."
	}

	keys := []key.Binding{m.keys.logout, m.keys.refresh, m.keys.quit}
	if m.session.State() != session.Authenticated {
		keys = []key.Binding{m.keys.login, m.keys.quit}
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", styles.title.Render("Error"), body, styles.help.Render(hint), m.help.ShortHelpView(keys))
}

func (m *Model) renderProfile() string {
	v := m.current
	if v.Status != profile.Ready || v.Profile == nil {
		return fmt.Sprintf("%s Loading profile...", m.spinner.View())
	}

	p := v.Profile
	header := styles.title.Render(p.Name())
	var info []string
	if p.Email != "" {
		info = append(info, styles.label.Render("Email: ")+p.Email)
	}
	if p.Country != "" {
		info = append(info, styles.label.Render("Country: ")+p.Country)
	}
	if p.Product != "" {
		info = append(info, styles.label.Render("Plan: ")+p.Product)
	}
	info = append(info, styles.label.Render("Followers: ")+fmt.Sprintf("%d", p.Followers))

	artists := m.renderList(m.artistList, v.ArtistsPending, "No top artists", m.focus == focusArtists)
	tracks := m.renderList(m.trackList, v.TracksPending, "No top tracks", m.focus == focusTracks)
	lists := lipgloss.JoinHorizontal(lipgloss.Top, artists, " ", tracks)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.tab, m.keys.refresh, m.keys.logout, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", header, strings.Join(info, "\n"), lists, helpView)
}

func (m *Model) renderList(l list.Model, pending bool, empty string, focused bool) string {
	style := styles.blurred
	if focused {
		style = styles.focused
	}

	var body string
	switch {
	case pending && len(l.Items()) == 0:
		body = fmt.Sprintf("%s\n\n%s Loading...", l.Title, m.spinner.View())
	case len(l.Items()) == 0:
		body = fmt.Sprintf("%s\n\n%s", l.Title, styles.help.Render(empty))
	default:
		body = l.View()
	}
	return style.Render(body)
}

func (m *Model) renderDetail() string {
	s := m.detail.State()
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	var body string
	switch {
	case !s.Open || s.Loading:
		body = fmt.Sprintf("%s Loading details...", m.spinner.View())
	case s.Err != nil:
		body = fmt.Sprintf("%s\n\n%s", styles.err.Render(s.Err.Error()), styles.help.Render("Press enter to retry."))
		helpView = m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	case s.Artist != nil:
		body = renderArtist(s.Artist)
	case s.Track != nil:
		body = renderTrack(s.Track)
	}

	return fmt.Sprintf("%s\n\n%s", styles.modal.Render(body), helpView)
}

func renderArtist(a *models.ArtistDetail) string {
	lines := []string{
		styles.title.Render(a.Name),
		styles.label.Render("Popularity: ") + fmt.Sprintf("%d/100", a.Popularity),
		styles.label.Render("Followers: ") + fmt.Sprintf("%d", a.Followers),
	}
	if len(a.Genres) > 0 {
		lines = append(lines, styles.label.Render("Genres: ")+strings.Join(a.Genres, ", "))
	}
	if a.SpotifyURL != "" {
		lines = append(lines, styles.label.Render("Spotify: ")+a.SpotifyURL)
	}
	return strings.Join(lines, "\n")
}

func renderTrack(t *models.TrackDetail) string {
	title := t.Name
	if t.Explicit {
		title += " " + styles.warn.Render("[E]")
	}
	lines := []string{
		styles.title.Render(title),
		styles.label.Render("Artists: ") + t.ArtistNames(),
		styles.label.Render("Album: ") + t.Album.Name,
	}
	if t.Album.ReleaseDate != "" {
		lines = append(lines, styles.label.Render("Released: ")+t.Album.ReleaseDate)
	}
	lines = append(lines,
		styles.label.Render("Duration: ")+t.FormatDuration(),
		styles.label.Render("Popularity: ")+fmt.Sprintf("%d/100", t.Popularity),
	)
	if t.PreviewURL != "" {
		lines = append(lines, styles.label.Render("Preview: ")+t.PreviewURL)
	}
	if t.SpotifyURL != "" {
		lines = append(lines, styles.label.Render("Spotify: ")+t.SpotifyURL)
	}
	return strings.Join(lines, "\n")
}
