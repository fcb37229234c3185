// Package export writes lead lists to files and object storage.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"leadfinder/internal/types"
)

// NoWebsiteMark flags rows whose listing has no website.
const NoWebsiteMark = "✅"

var csvHeader = []string{"Name", "Address", "Phone", "Website", "No Website?", "Latitude", "Longitude"}

// WriteCSV writes one row per lead after a header row.
func WriteCSV(w io.Writer, leads []types.LeadRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range leads {
		noSite := ""
		if !l.HasWebsite() {
			noSite = NoWebsiteMark
		}
		row := []string{
			l.Name,
			l.Address,
			l.Phone,
			l.WebsiteURL(),
			noSite,
			strconv.FormatFloat(l.Location.Latitude, 'f', 6, 64),
			strconv.FormatFloat(l.Location.Longitude, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", l.PlaceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
