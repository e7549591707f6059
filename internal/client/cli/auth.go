package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
)

func signedIn(w io.Writer, p *models.Profile) {
	fmt.Fprintf(w, "signed in as %s (id %d)\n", p.Username, p.ID)
}

func (a *App) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username-or-email]",
		Short: "Sign in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.prompt(cmd, args, 0, "Username or email")
			if err != nil {
				return err
			}
			pw, err := a.secret(cmd, "Password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			_, err = run(cmd, "signing in", func(ctx context.Context) (*models.Profile, error) {
				return a.Auth.Login(ctx, id, string(pw))
			}, signedIn)
			return err
		},
	}
}

func (a *App) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [username] [email]",
		Short: "Create an account and sign in",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := a.prompt(cmd, args, 0, "Username")
			if err != nil {
				return err
			}
			email, err := a.prompt(cmd, args, 1, "Email")
			if err != nil {
				return err
			}
			pw, err := a.secret(cmd, "Password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			_, err = run(cmd, "creating account", func(ctx context.Context) (*models.Profile, error) {
				return a.Auth.Register(ctx, username, email, string(pw))
			}, signedIn)
			return err
		},
	}
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget cached account data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "signing out", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, a.Auth.Logout(ctx)
			}, say("signed out"))
			return err
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := run(cmd, "fetching profile", a.Profile.Me, showProfile)
			if err != nil && s.Value != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "cached copy:")
				showProfile(cmd.OutOrStdout(), s.Value)
			}
			return err
		},
	}
}

func (a *App) passwordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Forgotten, reset or changed password",
	}

	forgot := &cobra.Command{
		Use:   "forgot [email]",
		Short: "Email a reset code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := a.prompt(cmd, args, 0, "Email")
			if err != nil {
				return err
			}
			_, err = run(cmd, "requesting reset code", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, a.Auth.ForgotPassword(ctx, email)
			}, say("if the address is registered, a reset code is on its way"))
			return err
		},
	}

	reset := &cobra.Command{
		Use:   "reset [code]",
		Short: "Set a new password with a reset code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.prompt(cmd, args, 0, "Reset code")
			if err != nil {
				return err
			}
			pw, confirm, err := a.newPassword(cmd)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			defer common.WipeByteArray(confirm)

			_, err = run(cmd, "resetting password", func(ctx context.Context) (*models.Profile, error) {
				return a.Auth.ResetPassword(ctx, code, string(pw), string(confirm))
			}, signedIn)
			return err
		},
	}

	change := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.secret(cmd, "Current password")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(current)
			pw, confirm, err := a.newPassword(cmd)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			defer common.WipeByteArray(confirm)

			_, err = run(cmd, "changing password", func(ctx context.Context) (*models.Profile, error) {
				return a.Auth.ChangePassword(ctx, string(current), string(pw), string(confirm))
			}, func(w io.Writer, _ *models.Profile) { fmt.Fprintln(w, "password changed") })
			return err
		},
	}

	cmd.AddCommand(forgot, reset, change)
	return cmd
}

func (a *App) newPassword(cmd *cobra.Command) ([]byte, []byte, error) {
	pw, err := a.secret(cmd, "New password")
	if err != nil {
		return nil, nil, err
	}
	confirm, err := a.secret(cmd, "Repeat new password")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, nil, err
	}
	return pw, confirm, nil
}
