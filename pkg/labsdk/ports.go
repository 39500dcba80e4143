package labsdk

import "context"

// Notifier shows short user-visible notices.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Progress is a global busy indicator. Start and Done are called in pairs
// around every request.
type Progress interface {
	Start()
	Done()
}

// Prompt describes a two-button confirmation dialog.
type Prompt struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
}

// Prompter asks the user to confirm or cancel. It may block for as long as
// the user takes.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// Navigator replaces the current screen.
type Navigator interface {
	Replace(ctx context.Context, path string) error
}

type nopUI struct{}

func (nopUI) Success(string) {}
func (nopUI) Error(string)   {}
func (nopUI) Start()         {}
func (nopUI) Done()          {}

func (nopUI) Confirm(context.Context, Prompt) (bool, error) { return false, nil }
