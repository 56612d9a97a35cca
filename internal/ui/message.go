package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/soundcheck/internal/profile"
	"github.com/desertthunder/soundcheck/internal/session"
)

var (
	_ tea.Msg = viewUpdateMsg{}
	_ tea.Msg = loadDoneMsg{}
	_ tea.Msg = detailMsg{}
	_ tea.Msg = logoutMsg{}
	_ tea.Msg = SessionChangedMsg{}
)

// SessionChangedMsg reports a session transition. The model re-runs the guard and reloads the profile.
type SessionChangedMsg struct {
	Snapshot session.Snapshot
}

// Subscriber is implemented by [session.Manager].
type Subscriber interface {
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// WatchSession forwards every transition of sess to send, usually [tea.Program.Send].
func WatchSession(sess Subscriber, send func(tea.Msg)) (stop func()) {
	return sess.Subscribe(func(snap session.Snapshot) {
		send(SessionChangedMsg{Snapshot: snap})
	})
}

// viewUpdateMsg carries one aggregator update read from ch.
type viewUpdateMsg struct {
	view profile.View
	ch   <-chan profile.View
}

// loadDoneMsg signals that the load feeding ch has finished.
type loadDoneMsg struct {
	ch <-chan profile.View
}

// detailMsg is the completion of a detail request.
type detailMsg struct {
	detail profile.Detail
	err    error
}

// logoutMsg is the completion of a logout.
type logoutMsg struct {
	err error
}
