package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the storefront command tree over app
func NewRootCommand(app *App) *cobra.Command {
	var jsonOutput bool

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Browse and bid on timed auctions",
		Long: `storefront is a command-line client for the auction storefront.

Environment Variables:
  STOREFRONT_BASE_URL            Backend API URL
  STOREFRONT_CREDENTIAL_BACKEND  Where the session is kept: file or redis
  STOREFRONT_DATA_FOLDER         Folder for the session file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")

	p := printer{out: app.Out, json: &jsonOutput}
	root.AddCommand(
		newLoginCommand(app, p),
		newLogoutCommand(app, p),
		newWhoamiCommand(app, p),
		newProfileCommand(app, p),
		newPasswdCommand(app, p),
		newRegisterCommand(app, p),
		newAuctionsCommand(app, p),
		newBidsCommand(app, p),
	)
	return root
}

type printer struct {
	out  io.Writer
	json *bool
}

// print writes v as indented JSON with --json, otherwise the human form
func (p printer) print(v any, human func(w io.Writer)) error {
	if *p.json {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.out, string(data))
		return err
	}
	human(p.out)
	return nil
}
