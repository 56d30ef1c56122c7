package cli

import (
	"fmt"
	"io"

	"github.com/jrsteele09/auction-storefront/users"
	"github.com/spf13/cobra"
)

func newLoginCommand(app *App, p printer) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				var err error
				if username, password, err = app.Prompter.Credentials(username); err != nil {
					return err
				}
			}

			s, err := app.Controller.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			return p.print(s.Profile, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s\n", s.Username)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(app *App, p printer) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Controller.Logout(cmd.Context()); err != nil {
				return err
			}
			return p.print(map[string]bool{"logged_out": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Logged out")
			})
		},
	}
}

func newWhoamiCommand(app *App, p printer) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session without contacting the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := app.Controller.Current()
			state := app.Controller.State().String()
			return p.print(map[string]any{"state": state, "id": s.ID, "username": s.Username}, func(w io.Writer) {
				if !ok {
					fmt.Fprintf(w, "Not logged in (%s)\n", state)
					return
				}
				fmt.Fprintf(w, "%s (id %d)\n", s.Username, s.ID)
			})
		},
	}
}

func newProfileCommand(app *App, p printer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Fetch your profile from the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := app.Controller.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			return p.print(profile, func(w io.Writer) { printProfile(w, profile) })
		},
	}

	var update users.ProfileUpdate
	flags := map[string]**string{
		"email":        &update.Email,
		"first-name":   &update.FirstName,
		"last-name":    &update.LastName,
		"birth-date":   &update.BirthDate,
		"locality":     &update.Locality,
		"municipality": &update.Municipality,
	}
	values := map[string]*string{}
	set := &cobra.Command{
		Use:   "update",
		Short: "Update only the given profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			for name, field := range flags {
				if cmd.Flags().Changed(name) {
					*field = values[name]
				}
			}
			profile, err := app.Controller.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			return p.print(profile, func(w io.Writer) { printProfile(w, profile) })
		},
	}
	for name := range flags {
		values[name] = set.Flags().String(name, "", "New "+name)
	}

	cmd.AddCommand(get, set)
	return cmd
}

func printProfile(w io.Writer, profile users.Profile) {
	fmt.Fprintf(w, "Username:     %s\n", profile.Username)
	fmt.Fprintf(w, "Email:        %s\n", profile.Email)
	fmt.Fprintf(w, "Name:         %s %s\n", profile.FirstName, profile.LastName)
	fmt.Fprintf(w, "Birth date:   %s\n", profile.BirthDate)
	fmt.Fprintf(w, "Locality:     %s\n", profile.Locality)
	fmt.Fprintf(w, "Municipality: %s\n", profile.Municipality)
}

func newPasswdCommand(app *App, p printer) *cobra.Command {
	var change users.PasswordChange

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Controller.ChangePassword(cmd.Context(), change); err != nil {
				return err
			}
			return p.print(map[string]bool{"changed": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Password changed")
			})
		},
	}
	cmd.Flags().StringVar(&change.OldPassword, "old", "", "Current password")
	cmd.Flags().StringVar(&change.NewPassword, "new", "", "New password")
	cmd.Flags().StringVar(&change.Confirmation, "confirm", "", "New password again")
	return cmd
}

func newRegisterCommand(app *App, p printer) *cobra.Command {
	var reg users.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := app.Controller.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			return p.print(profile, func(w io.Writer) {
				fmt.Fprintf(w, "Account %s created, log in to continue\n", profile.Username)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&reg.Username, "username", "", "Username")
	f.StringVar(&reg.Email, "email", "", "Email address")
	f.StringVar(&reg.Password, "password", "", "Password: 8+ letters and digits")
	f.StringVar(&reg.Confirmation, "confirm", "", "Password again")
	f.StringVar(&reg.FirstName, "first-name", "", "First name")
	f.StringVar(&reg.LastName, "last-name", "", "Last name")
	f.StringVar(&reg.BirthDate, "birth-date", "", "Birth date, YYYY-MM-DD")
	f.StringVar(&reg.Locality, "locality", "", "Locality")
	f.StringVar(&reg.Municipality, "municipality", "", "Municipality")
	return cmd
}
