package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/common"
)

type advertFlags struct {
	d     models.AdvertDraft
	image string
}

func (af *advertFlags) bind(f *pflag.FlagSet) {
	f.StringVar(&af.d.Name, "name", "", "title")
	f.StringVar(&af.d.Content, "content", "", "description")
	f.Float64Var(&af.d.Price, "price", 0, "asking price")
	f.StringVar(&af.d.Currency, "currency", "", "ISO currency code")
	f.Int64Var(&af.d.CategoryID, "category", 0, "category id")
	f.StringVar(&af.image, "image", "", "picture to upload")
}

// uploadImage sends the --image file. No path means no image.
func (a *App) uploadImage(ctx context.Context, path string) (*models.UploadedFile, error) {
	if path == "" {
		return nil, nil
	}
	return a.Upload.UploadFile(ctx, path)
}

func (a *App) advertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "advert",
		Aliases: []string{"adverts"},
		Short:   "Browse the catalog and manage your adverts",
	}

	var mineCached bool
	mine := &cobra.Command{
		Use:   "mine",
		Short: "List the adverts linked to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch := a.Advert.Mine
			if mineCached {
				fetch = a.Advert.Cached
			}
			_, err := run(cmd, "fetching adverts", fetch, showAdverts)
			return err
		},
	}
	mine.Flags().BoolVar(&mineCached, "cached", false, "read the local cache only")

	var q client.AdvertQuery
	var browseCached bool
	browse := &cobra.Command{
		Use:   "browse",
		Short: "List adverts from everyone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if browseCached {
				_, err := run(cmd, "reading cache", func(ctx context.Context) ([]models.Advert, error) {
					return a.Advert.CachedBrowse(ctx, q.CategoryID)
				}, showAdverts)
				return err
			}
			_, err := run(cmd, "fetching adverts", func(ctx context.Context) (*client.AdvertPage, error) {
				return a.Advert.Browse(ctx, q)
			}, showPage)
			return err
		},
	}
	browse.Flags().Int64Var(&q.CategoryID, "category", 0, "only this category")
	browse.Flags().IntVar(&q.Page, "page", 1, "page number")
	browse.Flags().IntVar(&q.PageSize, "size", 25, "adverts per page")
	browse.Flags().BoolVar(&browseCached, "cached", false, "read the local cache only")

	var addF advertFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Publish an advert and link it to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := addF.d
			var err error
			if d.Name == "" {
				if d.Name, err = getSimpleText(a.in, "Title", cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			if d.Content == "" {
				if d.Content, err = getMultiline(a.in, "Description", cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			_, err = run(cmd, "publishing advert", func(ctx context.Context) (models.Advert, error) {
				img, err := a.uploadImage(ctx, addF.image)
				if err != nil {
					return models.Advert{}, err
				}
				if img != nil {
					d.ImageID = img.ID
				}
				return a.Advert.Create(ctx, d)
			}, showAdvert)
			return err
		},
	}
	addF.bind(add.Flags())

	var updF advertFlags
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f := cmd.Flags()
			_, err = run(cmd, "updating advert", func(ctx context.Context) (models.Advert, error) {
				cur, err := a.findAdvert(ctx, id)
				if err != nil {
					return models.Advert{}, err
				}
				if f.Changed("name") {
					cur.Name = updF.d.Name
				}
				if f.Changed("content") {
					cur.Content = updF.d.Content
				}
				if f.Changed("price") {
					cur.Price = updF.d.Price
				}
				if f.Changed("currency") {
					cur.Currency = updF.d.Currency
				}
				if f.Changed("category") {
					cur.CategoryID = updF.d.CategoryID
				}
				img, err := a.uploadImage(ctx, updF.image)
				if err != nil {
					return models.Advert{}, err
				}
				if img != nil {
					cur.Image = img
				}
				return a.Advert.Update(ctx, cur)
			}, showAdvert)
			return err
		},
	}
	updF.bind(update.Flags())

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an advert and unlink it from the profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, err = run(cmd, "deleting advert", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, a.Advert.Delete(ctx, id)
			}, say(fmt.Sprintf("advert %d deleted", id)))
			return err
		},
	}

	cmd.AddCommand(mine, browse, add, update, del)
	return cmd
}

func (a *App) findAdvert(ctx context.Context, id int64) (models.Advert, error) {
	if list, err := a.Advert.Cached(ctx); err == nil {
		for _, x := range list {
			if x.ID == id {
				return x, nil
			}
		}
	}
	list, err := a.Advert.Mine(ctx)
	if err != nil {
		return models.Advert{}, err
	}
	for _, x := range list {
		if x.ID == id {
			return x, nil
		}
	}
	return models.Advert{}, fmt.Errorf("advert %d: %w", id, common.ErrNotFound)
}

func (a *App) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List advert categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := run(cmd, "fetching categories", a.Catalog.Categories, showCategories)
			if err != nil && len(s.Value) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "cached copy:")
				showCategories(cmd.OutOrStdout(), s.Value)
			}
			return err
		},
	}
}
