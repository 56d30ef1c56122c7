package cli

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jrsteele09/auction-storefront/internal/errors"
)

// Prompter asks the user for what was not given on the command line
type Prompter interface {
	Credentials(username string) (string, string, error)
}

// FormPrompter prompts on the terminal
type FormPrompter struct{}

func (FormPrompter) Credentials(username string) (string, string, error) {
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required("password")),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", errors.Wrapf(err, "prompt")
	}
	return strings.TrimSpace(username), password, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}
