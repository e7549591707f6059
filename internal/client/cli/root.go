package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/bazaar/internal/client/config"
)

// Command builds the command tree. A fresh tree is built for every shell
// line so flag values never leak between commands.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "bazaar",
		Short:         "Marketplace client: account, addresses and adverts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.out)

	// read by config.LoadConfig before the tree runs
	config.DeclareFlags(root.PersistentFlags())

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.passwordCmd(),
		a.profileCmd(),
		a.avatarCmd(),
		a.addressCmd(),
		a.advertCmd(),
		a.categoriesCmd(),
		a.shellCmd(),
	)
	return root
}

func (a *App) prompt(cmd *cobra.Command, args []string, i int, label string) (string, error) {
	if i < len(args) && args[i] != "" {
		return args[i], nil
	}
	return getSimpleText(a.in, label, cmd.OutOrStdout())
}

func (a *App) secret(cmd *cobra.Command, label string) ([]byte, error) {
	return getPassword(cmd.OutOrStdout(), label)
}
