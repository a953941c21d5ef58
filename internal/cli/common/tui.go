package common

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var errPromptAborted = ValidationError("prompt aborted; pass the values as flags or use --no-prompt", nil)

// PromptInput asks for one value. An empty answer takes the placeholder, so
// callers can offer defaults such as the listen address.
func PromptInput(command *cobra.Command, prompt string, placeholder string) (string, error) {
	if err := requireTerminal(command); err != nil {
		return "", err
	}

	var answer string
	if err := ask(command, huh.NewInput().
		Title(promptTitle(prompt)).
		Placeholder(placeholder).
		Value(&answer)); err != nil {
		return "", err
	}

	if answer = strings.TrimSpace(answer); answer != "" {
		return answer, nil
	}
	return placeholder, nil
}

// PromptSelect offers options with the first one highlighted, e.g. the engine
// kinds with the default kind first.
func PromptSelect(command *cobra.Command, prompt string, options []string) (string, error) {
	if len(options) == 0 {
		return "", ValidationError("prompt has nothing to choose from", nil)
	}
	if err := requireTerminal(command); err != nil {
		return "", err
	}

	choice := options[0]
	if err := ask(command, huh.NewSelect[string]().
		Title(promptTitle(prompt)).
		Options(huh.NewOptions(options...)...).
		Value(&choice)); err != nil {
		return "", err
	}
	return choice, nil
}

// PromptConfirm asks a yes/no question such as whether to overwrite a file.
func PromptConfirm(command *cobra.Command, prompt string, defaultYes bool) (bool, error) {
	if err := requireTerminal(command); err != nil {
		return false, err
	}

	confirmed := defaultYes
	if err := ask(command, huh.NewConfirm().
		Title(promptTitle(prompt)).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)); err != nil {
		return false, err
	}
	return confirmed, nil
}

func requireTerminal(command *cobra.Command) error {
	if IsInteractiveTerminal(command) {
		return nil
	}
	return ValidationError("prompts need an interactive terminal; pass the values as flags", nil)
}

func ask(command *cobra.Command, field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).
		WithInput(command.InOrStdin()).
		WithOutput(command.OutOrStdout()).
		WithShowHelp(false).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errPromptAborted
	}
	return err
}

func promptTitle(prompt string) string {
	if title := strings.TrimSuffix(strings.TrimSpace(prompt), ":"); title != "" {
		return title
	}
	return "Value"
}
