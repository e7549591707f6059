package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/filex"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

func (a *App) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "fetching profile", a.Profile.Me, showProfile)
			return err
		},
	}

	var username, first, last, phone, dob string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags given are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var u models.ProfileUpdate
			f := cmd.Flags()
			if f.Changed("username") {
				u.Username = &username
			}
			if f.Changed("first-name") {
				u.FirstName = &first
			}
			if f.Changed("last-name") {
				u.LastName = &last
			}
			if f.Changed("phone") {
				u.PhoneNumber = &phone
			}
			if f.Changed("dob") {
				t, err := timex.ParseTimestamp(dob)
				if err != nil {
					return fmt.Errorf("--dob: %w", err)
				}
				u.DateOfBirth = &t
			}

			_, err := run(cmd, "updating profile", func(ctx context.Context) (*models.Profile, error) {
				return a.Profile.Update(ctx, u)
			}, showProfile)
			return err
		},
	}
	update.Flags().StringVar(&username, "username", "", "new username")
	update.Flags().StringVar(&first, "first-name", "", "first name")
	update.Flags().StringVar(&last, "last-name", "", "last name")
	update.Flags().StringVar(&phone, "phone", "", "phone number")
	update.Flags().StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD")

	cmd.AddCommand(update)
	return cmd
}

func (a *App) avatarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Manage the profile picture",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <file>",
		Short: "Upload a picture and attach it to the profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, err := filex.ReadUpload(args[0])
			if err != nil {
				return err
			}
			defer up.Close()

			_, err = run(cmd, "uploading avatar", func(ctx context.Context) (*models.UploadedFile, error) {
				return a.Profile.SetAvatar(ctx, up.Name, up)
			}, showFile)
			return err
		},
	})
	return cmd
}
