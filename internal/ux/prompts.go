package ux

import (
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned by prompts when stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Confirm asks a yes/no question. Aborting the prompt counts as "no".
func Confirm(title, description string) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}

	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// PromptText asks for a non-empty multi-line answer.
func PromptText(title, placeholder string) (string, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}

	var value string
	err := huh.NewText().
		Title(title).
		Placeholder(placeholder).
		Validate(requireText).
		Value(&value).
		Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func requireText(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("a value is required")
	}
	return nil
}
