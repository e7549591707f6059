package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/bazaar/internal/client/client"
	"github.com/dmitrijs2005/bazaar/internal/client/models"
	"github.com/dmitrijs2005/bazaar/internal/client/result"
	"github.com/dmitrijs2005/bazaar/internal/timex"
)

// shownError is a failure already printed to the user.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

// run executes fn through result.Run and prints every state it passes
// through. The returned error is non-nil only for the error state.
func run[T any](cmd *cobra.Command, busy string, fn func(context.Context) (T, error), show func(io.Writer, T)) (result.State[T], error) {
	w := cmd.OutOrStdout()
	s := result.Run(cmd.Context(), fn, func(s result.State[T]) {
		render(w, busy, s, show)
	})
	if s.Status == result.StatusError {
		return s, &shownError{err: s.Err}
	}
	return s, nil
}

func render[T any](w io.Writer, busy string, s result.State[T], show func(io.Writer, T)) {
	switch s.Status {
	case result.StatusLoading:
		fmt.Fprintf(w, "%s...\n", busy)
	case result.StatusSuccess:
		show(w, s.Value)
		if s.Warning != "" {
			fmt.Fprintf(w, "warning: %s\n", s.Warning)
		}
	case result.StatusError:
		fmt.Fprintf(w, "error (%s): %s\n", s.Kind, s.Message)
	}
}

func say(msg string) func(io.Writer, struct{}) {
	return func(w io.Writer, _ struct{}) { fmt.Fprintln(w, msg) }
}

func showProfile(w io.Writer, p *models.Profile) {
	if p == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%d\n", p.ID)
	fmt.Fprintf(tw, "username\t%s\n", p.Username)
	fmt.Fprintf(tw, "email\t%s\n", p.Email)
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		fmt.Fprintf(tw, "name\t%s\n", name)
	}
	if p.PhoneNumber != "" {
		fmt.Fprintf(tw, "phone\t%s\n", p.PhoneNumber)
	}
	if !p.DateOfBirth.IsZero() {
		fmt.Fprintf(tw, "born\t%s\n", timex.FormatDate(p.DateOfBirth))
	}
	if p.Avatar != nil {
		fmt.Fprintf(tw, "avatar\t%s\n", p.Avatar.URL)
	}
	fmt.Fprintf(tw, "addresses\t%v\n", p.AddressIDs())
	fmt.Fprintf(tw, "adverts\t%v\n", p.AdvertIDs())
	_ = tw.Flush()
}

func showAddress(w io.Writer, a models.Address) {
	fmt.Fprintf(w, "#%d %s: %s\n", a.ID, a.Name, formatAddress(a))
}

func formatAddress(a models.Address) string {
	parts := []string{a.AddressLine1}
	if a.AddressLine2 != "" {
		parts = append(parts, a.AddressLine2)
	}
	parts = append(parts, a.City, a.PostCode, a.Country)
	s := strings.Join(parts, ", ")
	if a.PhoneNumber != "" {
		s += " (" + a.PhoneNumber + ")"
	}
	return s
}

func showAddresses(w io.Writer, list []models.Address) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no addresses")
		return
	}
	for _, a := range list {
		showAddress(w, a)
	}
}

func formatPrice(a models.Advert) string {
	if a.Currency == "" {
		return fmt.Sprintf("%.2f", a.Price)
	}
	return fmt.Sprintf("%.2f %s", a.Price, a.Currency)
}

func showAdvert(w io.Writer, a models.Advert) {
	fmt.Fprintf(w, "#%d %s, %s\n", a.ID, a.Name, formatPrice(a))
}

func showAdverts(w io.Writer, list []models.Advert) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no adverts")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCATEGORY\tLISTED")
	for _, a := range list {
		cat := "-"
		if a.CategoryID != 0 {
			cat = fmt.Sprint(a.CategoryID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Name, formatPrice(a), cat, timex.FormatDate(a.CreatedAt))
	}
	_ = tw.Flush()
}

func showCategories(w io.Writer, list []models.Category) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no categories")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Slug)
	}
	_ = tw.Flush()
}

func showFile(w io.Writer, f *models.UploadedFile) {
	if f == nil {
		return
	}
	fmt.Fprintf(w, "file #%d %s (%d bytes)\n", f.ID, f.Name, f.Size)
}

func showPage(w io.Writer, p *client.AdvertPage) {
	if p == nil {
		return
	}
	showAdverts(w, p.Adverts)
	pg := p.Pagination
	if pg.PageCount > 1 {
		fmt.Fprintf(w, "page %d of %d, %d adverts\n", pg.Page, pg.PageCount, pg.Total)
	}
}
