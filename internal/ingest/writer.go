package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"sweeps/pkg/model"
)

var listingHeader = []string{
	"title",
	"url",
	"canonical_url",
	"end_date",
	"end_date_key",
	"signature",
	"row_index",
	"sheet_row",
}

// WriteListings writes cleaned listings as CSV. Extra columns follow the
// fixed ones, sorted by name, and cells a listing lacks are left blank.
func WriteListings(w io.Writer, listings []model.Listing) error {
	extras := extraColumns(listings)

	cw := csv.NewWriter(w)
	if err := cw.Write(append(slices.Clone(listingHeader), extras...)); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	rec := make([]string, len(listingHeader)+len(extras))
	for i := range listings {
		l := &listings[i]
		rec = rec[:0]
		rec = append(rec,
			l.Title,
			l.URL,
			l.CanonicalURL,
			l.EndDate.DisplayDate,
			l.EndDate.Key,
			l.Signature,
			strconv.Itoa(l.RowIndex),
			strconv.Itoa(SheetRow(l.RowIndex)),
		)
		for _, name := range extras {
			rec = append(rec, l.Extra[name])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", l.RowIndex, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func extraColumns(listings []model.Listing) []string {
	seen := make(map[string]struct{})
	for i := range listings {
		for name := range listings[i].Extra {
			if slices.Contains(listingHeader, name) {
				continue
			}
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
