// Where: cli/internal/app/prompt.go
// What: Interactive confirmation using the huh library.
// Why: A mutating deploy needs explicit consent unless --yes is passed.
package app

import (
	"github.com/charmbracelet/huh"
)

// HuhPrompter implements the Prompter interface with a TUI confirm field.
type HuhPrompter struct{}

func (HuhPrompter) Confirm(title string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Deploy").
		Negative("Abort").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, err
	}
	return confirmed, nil
}
