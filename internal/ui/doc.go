// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for sorting liked songs:
//  1. [LikedListView] : Browse the liked songs that will be sorted
//  2. [ConfirmView] : Confirm the sort operation
//  3. [SortView] : Monitor real-time progress updates
//  4. [ResultView] : Display per-genre results and failures
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the sort engine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
