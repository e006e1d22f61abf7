// Command authctl drives the failover client against the configured auth
// service endpoints.
//
// Usage:
//
//	authctl [-config path] [-servers url1,url2] login -user admin
//	authctl verify-settings -user admin
//	authctl events [-user kid] [-limit 20]
//	authctl stats
//	authctl watch
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"auth-failover/internal/client"
	"auth-failover/internal/registry"
	"auth-failover/pkg/config"
	"auth-failover/pkg/logger"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	registry *registry.Registry
	client   *client.Client
	in       io.Reader
	out      io.Writer
}

func run(args []string, in io.Reader, out io.Writer) error {
	global := flag.NewFlagSet("authctl", flag.ContinueOnError)
	global.SetOutput(out)
	configPath := global.String("config", "configs/client.yaml", "path to the client configuration file")
	servers := global.String("servers", "", "comma separated endpoint list overriding the configuration")
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errors.New("expected a command: login, verify-settings, events, stats or watch")
	}

	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		return err
	}
	if *servers != "" {
		cfg.Client.Servers = config.ParseServerList(*servers)
	}

	a := newApp(cfg, client.NewHTTPClient(client.SettingsFromConfig(cfg.Client)), in, out)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "login":
		return a.login(ctx, cmdArgs)
	case "verify-settings":
		return a.verifySettings(ctx, cmdArgs)
	case "events":
		return a.events(ctx, cmdArgs)
	case "stats":
		return a.stats(ctx, cmdArgs)
	case "watch":
		return a.watch(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newApp(cfg *config.Config, httpClient *http.Client, in io.Reader, out io.Writer) *app {
	log := logger.New(cfg.Logging).WithComponent("authctl")

	// Health probes and auth requests share one pooled client
	reg := registry.New(
		registry.EndpointsFromConfig(cfg.Client.Servers),
		registry.WithSettings(registry.SettingsFromConfig(cfg.Client)),
		registry.WithProbe(registry.HTTPProbe(httpClient)),
		registry.WithLogger(log),
	)

	c := client.New(reg,
		client.WithSettings(client.SettingsFromConfig(cfg.Client)),
		client.WithHTTPClient(httpClient),
		client.WithLogger(log),
	)

	return &app{cfg: cfg, registry: reg, client: c, in: in, out: out}
}

func (a *app) credentials(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	user := fs.String("user", "", "account username")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *user == "" {
		return "", "", errors.New("-user is required")
	}

	pw, err := a.password(*password)
	if err != nil {
		return "", "", err
	}
	return *user, pw, nil
}

// password falls back to AUTHCTL_PASSWORD and then to a prompt
func (a *app) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("AUTHCTL_PASSWORD"); env != "" {
		return env, nil
	}
	return a.promptPassword()
}

// promptPassword reads without echo on a terminal and a plain line otherwise
func (a *app) promptPassword() (string, error) {
	fmt.Fprint(a.out, "Enter password: ")

	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) login(ctx context.Context, args []string) error {
	user, password, err := a.credentials("login", args)
	if err != nil {
		return err
	}

	result, err := a.client.Login(ctx, user, password)
	if err != nil {
		return err
	}
	return a.printJSON(result)
}

func (a *app) verifySettings(ctx context.Context, args []string) error {
	user, password, err := a.credentials("verify-settings", args)
	if err != nil {
		return err
	}

	result, err := a.client.VerifySettings(ctx, user, password)
	if err != nil {
		return err
	}
	return a.printJSON(result)
}

func (a *app) events(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(a.out)
	user := fs.String("user", "", "only show events for this username")
	limit := fs.Int("limit", 50, "maximum number of events")
	adminPassword := fs.String("admin-password", "", "admin password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := a.password(*adminPassword)
	if err != nil {
		return err
	}

	events, err := a.client.AuthEvents(ctx, pw, *user, *limit)
	if err != nil {
		return err
	}
	return a.printJSON(events)
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(a.out)
	probe := fs.Bool("probe", false, "probe every endpoint before reporting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *probe {
		a.registry.ProbeAll(ctx)
	}
	return a.printJSON(a.client.Stats())
}

func (a *app) watch(ctx context.Context) error {
	monitor := registry.NewMonitor(a.registry, a.cfg.Client.HealthInterval)
	monitor.SetCallbacks(
		func(url string) { fmt.Fprintf(a.out, "DOWN %s\n", url) },
		func(url string) { fmt.Fprintf(a.out, "UP   %s\n", url) },
	)

	monitor.Tick(ctx)
	for _, s := range a.registry.Stats() {
		state := "UP  "
		if !s.Health.Healthy {
			state = "DOWN"
		}
		fmt.Fprintf(a.out, "%s %s\n", state, s.URL)
	}

	if err := monitor.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	monitor.Stop()
	return nil
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
