package main

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func charactersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "characters",
		Short: "List the account's characters and the available servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			game, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			catalog := game.Catalog()

			chars := pterm.TableData{{"Name", "Class", "Level", "Home"}}
			for _, name := range catalog.CharacterNames() {
				c := catalog.Characters[name]
				chars = append(chars, []string{c.Name, c.Class, strconv.Itoa(c.Level), c.Home})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(chars).Render(); err != nil {
				return err
			}
			pterm.Println()

			servers := pterm.TableData{{"Key", "Region", "Name", "Players", "Address"}}
			for _, key := range catalog.ServerKeys() {
				s := catalog.Servers[key]
				servers = append(servers, []string{
					s.Key, s.Region, s.Name, strconv.Itoa(s.Players),
					s.Addr + ":" + strconv.Itoa(s.Port),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(servers).Render()
		},
	}
}
