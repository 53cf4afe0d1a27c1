// Command squash submits feedback, lists a project's dashboard and votes from
// the terminal, using the same client state machines as the embedded widget.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"squashfeature/internal/client"
	"squashfeature/internal/config"
	"squashfeature/internal/ledger"

	"github.com/joho/godotenv"
)

const usage = `usage: squash [-config file] <command> [flags]

commands:
  submit -type feature|bug -title T -description D
  dashboard [-filter all|feature|bug]
  vote <id>
  admin-token -subject S [-ttl 24h]
`

const requestTimeout = 30 * time.Second

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// env carries what a command needs from the process.
type env struct {
	getenv     func(string) string
	configPath string
	stdout     io.Writer
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("squash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "YAML config file (environment variables override it)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	e := env{getenv: getenv, configPath: *configPath, stdout: stdout}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	var err error
	switch cmd {
	case "submit":
		err = runSubmit(ctx, e, rest)
	case "dashboard":
		err = runDashboard(ctx, e, rest)
	case "vote":
		err = runVote(ctx, e, rest)
	case "admin-token":
		err = runAdminToken(e, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "squash: %v\n", err)
		return 1
	}
}

func (e env) clientConfig() (config.Client, error) {
	if e.configPath != "" {
		return config.LoadFile(e.configPath, e.getenv)
	}
	return config.Load(e.getenv)
}

func newClient(cfg config.Client) *client.Client {
	return client.New(cfg.BaseURL, cfg.APIKey, client.Mode(cfg.Mode),
		client.WithOrigin(cfg.Origin),
		client.WithHTTPClient(newHTTPClient()),
	)
}

// ledgerStore opens the vote ledger, by default under the user config dir.
func ledgerStore(cfg config.Client) (*ledger.FileStore, error) {
	dir := cfg.LedgerDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("no ledger dir configured and %w", err)
		}
		dir = filepath.Join(base, "squashfeature")
	}
	return ledger.NewFileStore(dir)
}
