package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/alclient/internal/app"
	"github.com/1ureka/alclient/internal/config"
	"github.com/1ureka/alclient/internal/metrics"
	"github.com/1ureka/alclient/internal/util"
)

func runCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run [character[@server]...]",
		Short: "Log in and keep a session alive for each character",
		Long: `Log in and keep one WebSocket session alive per character.

Characters are taken from the arguments, then from the [[characters]]
entries of the config file. With neither, an interactive picker lists
the account's characters. A character plays on its home server unless
a server key is given, e.g. Warrior1@EUI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args)
		},
	}
}

func run(ctx context.Context, cfg config.Config, args []string) error {
	pterm.Info.Println(fmt.Sprintf("alclient v%s", version))
	pterm.Println()

	game, err := connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}

	targets, err := selectTargets(game, cfg, args)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				util.LogError("metrics listener: %v", err)
			}
		}()
		util.LogInfo("serving metrics on http://%s/metrics", cfg.MetricsAddr)
	}
	if cfg.Stats {
		util.StartStatsReporter(ctx)
	}

	if err := game.Run(ctx, targets); err != nil {
		return err
	}
	util.LogInfo("all sessions closed")
	return nil
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// selectTargets resolves the characters to play from args, the config file,
// or an interactive picker, in that order.
func selectTargets(game *app.Game, cfg config.Config, args []string) ([]app.Target, error) {
	if len(args) > 0 {
		targets := make([]app.Target, 0, len(args))
		for _, arg := range args {
			t, err := parseTarget(arg)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
		return targets, nil
	}

	if len(cfg.Characters) > 0 {
		targets := make([]app.Target, 0, len(cfg.Characters))
		for _, c := range cfg.Characters {
			targets = append(targets, app.Target{Character: c.Name, Server: c.Server})
		}
		return targets, nil
	}

	names := game.Catalog().CharacterNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("the account has no characters")
	}
	picked, _ := pterm.DefaultInteractiveMultiselect.
		WithOptions(names).
		WithDefaultText("Select characters to play").
		Show()
	pterm.Println()

	if len(picked) == 0 {
		return nil, fmt.Errorf("no character selected")
	}
	targets := make([]app.Target, 0, len(picked))
	for _, name := range picked {
		targets = append(targets, app.Target{Character: name})
	}
	return targets, nil
}

// parseTarget splits "Name@SERVER" into a Target; the server part is
// optional.
func parseTarget(raw string) (app.Target, error) {
	name, server, _ := strings.Cut(strings.TrimSpace(raw), "@")
	if name == "" {
		return app.Target{}, fmt.Errorf("invalid character %q", raw)
	}
	return app.Target{Character: name, Server: server}, nil
}
