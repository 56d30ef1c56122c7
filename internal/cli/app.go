package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jrsteele09/auction-storefront/auth"
	"github.com/jrsteele09/auction-storefront/authclient"
	"github.com/jrsteele09/auction-storefront/catalog"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/jrsteele09/auction-storefront/outcome"
)

// Exit codes
const (
	ExitOK          = 0
	ExitError       = 1
	ExitAuthFailure = 2
)

const loginHint = "Run `storefront login` to sign in."

// App is everything the commands act on
type App struct {
	Controller *auth.Controller
	Catalog    *catalog.Catalog
	Prompter   Prompter
	Notice     *Notice
	Out        io.Writer
	Err        io.Writer
}

var _ authclient.Notifier = (*Notice)(nil)

// Notice prints the session-ended message at most once per process
type Notice struct {
	once sync.Once
	w    io.Writer
}

func NewNotice(w io.Writer) *Notice {
	return &Notice{w: w}
}

func (n *Notice) SessionEnded(reason string) {
	n.once.Do(func() {
		if reason == outcome.ReasonNoActiveSession {
			fmt.Fprintln(n.w, "You are not logged in.")
		} else {
			fmt.Fprintln(n.w, "Your session has expired, please log in again.")
		}
		fmt.Fprintln(n.w, loginHint)
	})
}

// Execute runs the command line and returns the process exit code. Any auth
// failure sends the user back to login with a non-zero exit.
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	err := root.ExecuteContext(ctx)
	app.Controller.Wait()
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, errors.ErrAuthFailure) && !errors.Is(err, errors.ErrInvalidCredentials) {
		reason := outcome.ReasonSessionExpired
		if errors.Is(err, errors.ErrSessionMissing) {
			reason = outcome.ReasonNoActiveSession
		}
		app.Notice.SessionEnded(reason)
		return ExitAuthFailure
	}

	fmt.Fprintf(app.Err, "Error: %s\n", describe(err))
	if errors.Is(err, errors.ErrAuthFailure) {
		return ExitAuthFailure
	}
	return ExitError
}

// describe renders field errors one per line
func describe(err error) string {
	oe, ok := outcome.FromError(err)
	if !ok || len(oe.Fields) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(oe.Fields))
	for field := range oe.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(oe.Message)
	for _, field := range fields {
		for _, m := range oe.Fields[field] {
			fmt.Fprintf(&b, "\n  %s: %s", field, m)
		}
	}
	return b.String()
}
