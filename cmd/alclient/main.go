// Command alclient is the CLI entry point.
//
// This tool logs into the game's HTTP API, then keeps one WebSocket session
// per selected character alive: it completes the Socket.IO handshake, answers
// keepalive pings and forwards game events to registered handlers.
//
// Characters come from the positional arguments of `run`, the config file,
// or an interactive picker when neither names any.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/alclient/internal/api"
	"github.com/1ureka/alclient/internal/app"
	"github.com/1ureka/alclient/internal/config"
	"github.com/1ureka/alclient/internal/util"
)

var version = "dev"

// globalFlags are shared by every command and override the config file.
type globalFlags struct {
	configPath string
	debug      bool
	email      string
	password   string
	apiURL     string
}

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "alclient",
		Short: "Headless game client speaking Socket.IO over WebSocket",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.debug {
				util.EnableDebug()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", config.DefaultPath, "Path to the TOML config file")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&flags.email, "email", "", "Account email (overrides config)")
	pf.StringVar(&flags.password, "password", "", "Account password (overrides config)")
	pf.StringVar(&flags.apiURL, "api-url", "", "HTTP API URL (overrides config)")

	rootCmd.AddCommand(
		runCmd(&flags),
		charactersCmd(&flags),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// loadConfig reads the config file and applies flag overrides.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.email != "" {
		cfg.Email = flags.email
	}
	if flags.password != "" {
		cfg.Password = flags.password
	}
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	return cfg, nil
}

// connect builds a Game for cfg, logs in and fetches the catalog.
func connect(ctx context.Context, cfg config.Config) (*app.Game, error) {
	client, err := api.NewClient(cfg.APIURL)
	if err != nil {
		return nil, err
	}

	email := cfg.Email
	if email == "" {
		email = ask("Email", false)
	}
	password := cfg.Password
	if password == "" {
		password = ask("Password", true)
	}

	game := app.New(client, app.WithSessionConfig(cfg.Session()))
	if err := game.Login(ctx, email, password); err != nil {
		return nil, err
	}
	if err := game.Refresh(ctx); err != nil {
		return nil, err
	}
	return game, nil
}

// ask prompts for a non-empty value, masking it when secret is set.
func ask(prompt string, secret bool) string {
	for {
		input := pterm.DefaultInteractiveTextInput.WithDefaultText(prompt)
		if secret {
			input = input.WithMask("*")
		}
		raw, _ := input.Show()
		pterm.Println()
		if raw != "" {
			return raw
		}
		util.LogWarning("%s must not be empty", prompt)
	}
}
