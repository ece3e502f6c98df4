// Command authctl drives an authcore engine from the shell.
//
// Configuration comes from an optional YAML file (--config or
// AUTHCORE_CONFIG), a .env file in the working directory and AUTHCORE_*
// environment variables. Results are printed to stdout as JSON; logs go to
// stderr.
//
// Usage:
//
//	authctl register --name Alice --email alice@example.com --password '...'
//	authctl login --email alice@example.com --password '...' [--code 123456]
//	authctl verify --token <jwt>
//	authctl user --id <user-id>
//	authctl mfa setup --user <user-id>
//	authctl mfa verify --user <user-id> --secret <base32> --code 123456
//	authctl mfa disable --user <user-id>
//	authctl mfa code --secret <base32>
//	authctl reset request --email alice@example.com
//	authctl reset confirm --token <reset-token> --password '...'
//	authctl report
//	authctl migrate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: authctl [--config file.yaml] <command> [flags]

commands:
  register   create an account and print a session token
  login      authenticate and print a session token
  verify     verify a session token
  user       show a stored account
  mfa        setup | verify | disable | code
  reset      request | confirm
  report     print the engine security report and config lint
  migrate    apply postgres migrations
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "authctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("authctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", os.Getenv("AUTHCORE_CONFIG"), "YAML config file")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	s, err := loadSettings(*configPath)
	if err != nil {
		return err
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}
	return cmd(ctx, s, rest[1:], stdout)
}
