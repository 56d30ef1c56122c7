package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/auction-storefront/auth"
	"github.com/jrsteele09/auction-storefront/authclient"
	"github.com/jrsteele09/auction-storefront/catalog"
	"github.com/jrsteele09/auction-storefront/internal/cli"
	"github.com/jrsteele09/auction-storefront/internal/config"
	"github.com/jrsteele09/auction-storefront/internal/logger"
	"github.com/jrsteele09/auction-storefront/routes"
	"github.com/jrsteele09/auction-storefront/sessions"
	"github.com/jrsteele09/auction-storefront/token"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			exitCode = cli.ExitError
		}
	}()

	// A missing .env is fine, the environment and defaults still apply
	_ = godotenv.Load()

	c := config.New()
	log := logger.New(c.GetLogLevel(), c.GetLogFile())
	if len(os.Args) == 1 {
		displayAppname(c.GetAppName())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, closeStore, err := buildApp(ctx, c, log)
	if err != nil {
		log.Err(err).Msg("Failed to start")
		return cli.ExitError
	}
	defer closeStore()

	return cli.Execute(ctx, app, os.Args[1:])
}

func buildApp(ctx context.Context, c config.Config, log zerolog.Logger) (*cli.App, func(), error) {
	store, closeStore, err := newStore(ctx, c, log)
	if err != nil {
		return nil, nil, err
	}

	r := routes.New(c.GetBaseURL(), c.GetRegisterURL())
	httpClient := &http.Client{Timeout: c.GetRequestTimeout()}

	tokens := token.NewService(r, token.WithHTTPClient(httpClient), token.WithLogger(log))
	controller, err := auth.NewController(ctx, auth.Deps{Store: store, Tokens: tokens, Routes: r},
		auth.WithHTTPClient(httpClient),
		auth.WithLogger(log),
		auth.WithLogoutTimeout(c.GetLogoutTimeout()),
	)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	notice := cli.NewNotice(os.Stderr)
	clientOptions := []authclient.Option{
		authclient.WithHTTPClient(httpClient),
		authclient.WithNotifier(notice),
		authclient.WithLogger(log),
	}
	if c.GetPreemptiveRefresh() {
		clientOptions = append(clientOptions, authclient.WithPreemptiveRefresh())
	}
	client := authclient.New(controller, clientOptions...)

	return &cli.App{
		Controller: controller,
		Catalog:    catalog.New(client, r, catalog.WithLogger(log)),
		Prompter:   cli.FormPrompter{},
		Notice:     notice,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}, closeStore, nil
}

func newStore(ctx context.Context, c config.Config, log zerolog.Logger) (sessions.Store, func(), error) {
	switch c.GetCredentialBackend() {
	case config.CredentialBackendRedis:
		store, err := sessions.DialRedisStore(ctx, c.GetRedisURL(), c.GetStorageKey(), sessions.WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.CredentialBackendFile, "":
		store := sessions.NewFileStore(afero.NewOsFs(), c.GetDataFolder(), c.GetStorageKey(), sessions.WithLogger(log))
		return store, func() {}, nil
	default:
		return nil, nil, errors.New("unknown credential backend " + c.GetCredentialBackend())
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
