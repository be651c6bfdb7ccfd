package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyayatech/casefind/configs"
	cferrors "github.com/nyayatech/casefind/internal/errors"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated config template to the working directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := cfgPath

			// Never overwrite user customizations without --force.
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Existing %s preserved (use --force to overwrite).\n", path)
				return nil
			}

			if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
				return cferrors.New(cferrors.ErrCodeStoreIO, fmt.Sprintf("write %s", path), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s.\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
