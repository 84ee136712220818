package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"staybook/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProperties(w io.Writer, ps []domain.Property) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCITY\tTYPE\tGUESTS\tNIGHTLY")
	for _, p := range ps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, truncate(p.Title, 40), p.Location.City, p.PropertyType,
			p.Capacity.Guests, money(p.Pricing.Nightly, p.Pricing.Currency))
	}
	tw.Flush()
}

func printBookings(w io.Writer, bs []domain.Booking) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROPERTY\tCHECK-IN\tCHECK-OUT\tNIGHTS\tGUESTS\tPAYMENT\tTOTAL")
	for _, b := range bs {
		prop := fmt.Sprintf("#%d", b.PropertyID)
		if b.Property != nil && b.Property.Title != "" {
			prop = truncate(b.Property.Title, 30)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			b.ID, prop, b.CheckIn.Format("2006-01-02"), b.CheckOut.Format("2006-01-02"),
			b.Nights(), b.Guests(), b.PaymentStatus, money(b.Totals.Total, b.Totals.Currency))
	}
	tw.Flush()
}

func money(v float64, currency string) string {
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", v, currency))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
