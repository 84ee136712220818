package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/querycache"
)

const searchTTL = 5 * time.Minute

type searchOpts struct {
	filters domain.SearchFilters
	pages   int
}

func newSearchCmd() *cobra.Command {
	var o searchOpts

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search properties",
		Long:  "Searches properties with the given filters. --pages loads further pages and merges them into one list, the same way infinite scroll does.",
		Example: `  staybook search --location Doha --guests 2
  staybook search --location Dubai --amenities wifi,pool --pages 3 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.filters.Location, "location", "", "city or area")
	f.StringVar(&o.filters.CheckIn, "check-in", "", "check-in date (YYYY-MM-DD)")
	f.StringVar(&o.filters.CheckOut, "check-out", "", "check-out date (YYYY-MM-DD)")
	f.IntVar(&o.filters.Guests, "guests", 0, "number of guests")
	f.Float64Var(&o.filters.MinPrice, "min-price", 0, "minimum nightly price")
	f.Float64Var(&o.filters.MaxPrice, "max-price", 0, "maximum nightly price")
	f.StringSliceVar(&o.filters.Amenities, "amenities", nil, "required amenities (comma-separated)")
	f.StringVar(&o.filters.PropertyType, "type", "", "property type (villa, apartment, ...)")
	f.StringVar(&o.filters.PlaceType, "place-type", "", "entire_place, private_room or shared_room")
	f.StringVar(&o.filters.Category, "category", "", "listing category")
	f.IntVar(&o.pages, "pages", 1, "number of pages to load")

	return cmd
}

func runSearch(cmd *cobra.Command, o searchOpts) error {
	if o.pages < 1 {
		return fmt.Errorf("--pages must be at least 1")
	}
	c, err := newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := c.ctx(cmd.Context())

	svc := app.NewSearchService(c.api, querycache.New[domain.SearchPage]("search", nil, searchTTL))
	view := svc.NewView()
	res, _, err := view.Apply(ctx, querycache.ParamsFromFilters(o.filters))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	for i := 1; i < o.pages && res.HasMore; i++ {
		if res, _, err = view.More(ctx); err != nil {
			return fmt.Errorf("loading page %d: %w", i+1, err)
		}
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, res)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(out, "No properties found.")
		return nil
	}
	printProperties(out, res.Items)
	more := ""
	if res.HasMore {
		more = fmt.Sprintf(", use --pages %d for more", res.Page+1)
	}
	fmt.Fprintf(out, "\n%d of %d shown%s\n", len(res.Items), res.Total, more)
	return nil
}
