package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect CLI configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "view",
			Short: "Show the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				app := MustApp()
				encoder := yaml.NewEncoder(os.Stdout)
				encoder.SetIndent(2)
				defer encoder.Close()
				return encoder.Encode(app.Config)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				app := MustApp()
				fmt.Println(app.Config.ConfigFile)
				return nil
			},
		},
	)

	return cmd
}
