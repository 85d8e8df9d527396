// Command draftsync edits a wellness session as a local JSON file. While
// "watch" runs, every save to the file is auto-saved to the session API.
//
//	draftsync login -email you@example.com
//	draftsync watch draft.json
//	draftsync publish draft.json
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/andressep95/session-service/internal/client"
	"github.com/andressep95/session-service/internal/config"
	"github.com/andressep95/session-service/internal/draftsync"
	"github.com/andressep95/session-service/internal/logging"
)

const usage = `usage: draftsync <command> [flags]

commands:
  login     -email <email> [-register]   obtain and store an API token
  watch     <draft.json>                  auto-save the draft while it is edited
  publish   <draft.json>                  publish the session the draft is synced to
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logging.InitLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "login":
		err = runLogin(ctx, cfg, args)
	case "watch":
		err = runWatch(ctx, cfg, args)
	case "publish":
		err = runPublish(ctx, cfg, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		logging.Logger.WithField("command", cmd).Error(err)
		os.Exit(1)
	}
}

func newClient(cfg *config.ClientConfig) (*client.Client, error) {
	token := cfg.Token
	if token == "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return nil, errors.New("not logged in: run `draftsync login` or set API_TOKEN")
	}

	return client.New(cfg.APIURL,
		client.WithToken(token),
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logging.Logger),
	), nil
}

func runLogin(ctx context.Context, cfg *config.ClientConfig, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	register := fs.Bool("register", false, "create the account first")
	_ = fs.Parse(args)

	if *email == "" {
		return errors.New("-email is required")
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	c := client.New(cfg.APIURL, client.WithTimeout(cfg.RequestTimeout), client.WithLogger(logging.Logger))
	authenticate := c.Login
	if *register {
		authenticate = c.Register
	}

	token, err := authenticate(ctx, *email, password)
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfg.TokenFile, []byte(token.Token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	logging.Logger.WithFields(logrus.Fields{
		"token_file": cfg.TokenFile,
		"expires_at": token.ExpiresAt,
	}).Info("Logged in")
	return nil
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	// piped input, e.g. from a secret manager
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func draftArg(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s expects exactly one draft file", name)
	}
	return fs.Arg(0), nil
}

func runWatch(ctx context.Context, cfg *config.ClientConfig, args []string) error {
	path, err := draftArg("watch", args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open draft: %w", err)
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	logging.Logger.WithFields(logrus.Fields{
		"draft":           path,
		"debounce":        cfg.DebounceDelay,
		"backup_interval": cfg.BackupInterval,
	}).Info("Watching draft, press Ctrl+C to stop")

	return draftsync.Sync(ctx, c, draftsync.Options{
		DraftPath:      path,
		DebounceDelay:  cfg.DebounceDelay,
		BackupInterval: cfg.BackupInterval,
		Logger:         logging.Logger,
	})
}

func runPublish(ctx context.Context, cfg *config.ClientConfig, args []string) error {
	path, err := draftArg("publish", args)
	if err != nil {
		return err
	}

	st, err := draftsync.LoadState(path)
	if err != nil {
		return err
	}
	if st.SessionID == nil {
		return errors.New("draft has not been synced yet: run `draftsync watch` first")
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	session, err := c.Publish(ctx, *st.SessionID)
	if err != nil {
		return err
	}

	logging.Logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"title":      session.Title,
	}).Info("Session published")
	return nil
}
