// Package ui implements the interactive profile view using bubbletea's Elm architecture.
//
// Views:
//  1. [LandingView] : not logged in; l starts the browser login after the program exits
//  2. [ProfileView] : profile header with the top artists and top tracks lists, enter opens a detail modal
//  3. [ErrorView] : the profile could not be loaded; o logs out, r retries
//
// Every navigation goes through the route guard, so an unauthenticated session always lands on [LandingView].
// Aggregator updates flow through a channel read by a [tea.Cmd], one message per update, keeping the
// bubbletea loop the only writer of the model.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, tab, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
