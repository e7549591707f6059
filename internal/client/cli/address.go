package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

type addressFlags struct {
	d models.AddressDraft
}

func (af *addressFlags) bind(f *pflag.FlagSet) {
	f.StringVar(&af.d.Name, "name", "", "label, e.g. Home")
	f.StringVar(&af.d.AddressLine1, "line1", "", "first address line")
	f.StringVar(&af.d.AddressLine2, "line2", "", "second address line")
	f.StringVar(&af.d.City, "city", "", "city")
	f.StringVar(&af.d.PostCode, "postcode", "", "post code")
	f.StringVar(&af.d.Country, "country", "", "country")
	f.StringVar(&af.d.PhoneNumber, "phone", "", "contact phone")
}

// apply copies the flags that were given onto a.
func (af *addressFlags) apply(f *pflag.FlagSet, a *models.Address) {
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("name", &a.Name, af.d.Name)
	set("line1", &a.AddressLine1, af.d.AddressLine1)
	set("line2", &a.AddressLine2, af.d.AddressLine2)
	set("city", &a.City, af.d.City)
	set("postcode", &a.PostCode, af.d.PostCode)
	set("country", &a.Country, af.d.Country)
	set("phone", &a.PhoneNumber, af.d.PhoneNumber)
}

func (a *App) addressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "address",
		Aliases: []string{"addresses"},
		Short:   "Manage postal addresses",
	}

	var cached bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List the addresses linked to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch := a.Address.List
			if cached {
				fetch = a.Address.Cached
			}
			_, err := run(cmd, "fetching addresses", fetch, showAddresses)
			return err
		},
	}
	list.Flags().BoolVar(&cached, "cached", false, "read the local cache only")

	var addF addressFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an address and link it to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(cmd, "creating address", func(ctx context.Context) (models.Address, error) {
				return a.Address.Create(ctx, addF.d)
			}, showAddress)
			return err
		},
	}
	addF.bind(add.Flags())

	var updF addressFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = run(cmd, "updating address", func(ctx context.Context) (models.Address, error) {
				cur, err := a.findAddress(ctx, id)
				if err != nil {
					return models.Address{}, err
				}
				updF.apply(cmd.Flags(), &cur)
				return a.Address.Update(ctx, cur)
			}, showAddress)
			return err
		},
	}
	updF.bind(update.Flags())

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an address and unlink it from the profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = run(cmd, "deleting address", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, a.Address.Delete(ctx, id)
			}, say(fmt.Sprintf("address %d deleted", id)))
			return err
		},
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}

func (a *App) findAddress(ctx context.Context, id int64) (models.Address, error) {
	if list, err := a.Address.Cached(ctx); err == nil {
		for _, x := range list {
			if x.ID == id {
				return x, nil
			}
		}
	}
	list, err := a.Address.List(ctx)
	if err != nil {
		return models.Address{}, err
	}
	for _, x := range list {
		if x.ID == id {
			return x, nil
		}
	}
	return models.Address{}, fmt.Errorf("address %d: %w", id, common.ErrNotFound)
}
