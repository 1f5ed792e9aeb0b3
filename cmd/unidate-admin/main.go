// Command unidate-admin runs the UniDate admin API and its maintenance commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/app"
	"github.com/unidate/unidate-admin/internal/config"
)

const usage = `usage: unidate-admin [serve|migrate|create-admin] [flags]

commands:
  serve         run the admin API (default)
  migrate       apply database migrations and exit
  create-admin  create an admin account
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches a subcommand. It returns errors instead of exiting so it can be tested.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	command := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ContinueOnError)
		configPath := fs.String("config", "", "path to config.yaml (optional)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		return app.RunServer(ctx, cfg)

	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
		configPath := fs.String("config", "", "path to config.yaml (optional)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		if errMigrate := app.Migrate(ctx, cfg); errMigrate != nil {
			return errMigrate
		}
		log.Info("migrations applied")
		return nil

	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		configPath := fs.String("config", "", "path to config.yaml (optional)")
		params := app.CreateAdminParams{}
		fs.StringVar(&params.Email, "email", "", "admin email (required)")
		fs.StringVar(&params.Password, "password", "", "admin password (required)")
		fs.StringVar(&params.DisplayName, "name", "", "display name (defaults to the part of -email before @)")
		fs.StringVar(&params.Role, "role", "admin", "super-admin, admin or moderator")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if params.Email == "" || params.Password == "" {
			return errors.New("create-admin: -email and -password are required")
		}
		if strings.TrimSpace(params.DisplayName) == "" {
			params.DisplayName, _, _ = strings.Cut(strings.TrimSpace(params.Email), "@")
		}
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		summary, errCreate := app.CreateAdmin(ctx, cfg, params)
		if errCreate != nil {
			return errCreate
		}
		fmt.Fprintf(stdout, "created %s admin %s (uid=%s)\n", summary.Role, summary.Email, summary.UID)
		return nil

	case "help":
		fmt.Fprint(stdout, usage)
		return nil

	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
