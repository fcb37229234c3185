package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"leadfinder/internal/types"
)

// Default shortlist of leads picked from the interactive list. It lives alongside the other
// data files so it survives across program invocations.
var leadsFile = filepath.Join("data", "leads.csv")

// loadLeads returns the saved shortlist. If the file does not exist, an empty slice is
// returned without error.
func loadLeads(path string) ([]types.LeadRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // no leads yet
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows saved before lat/lng were added have 5 fields

	var leads []types.LeadRecord
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(rec) != 5 && len(rec) != 7 {
			return nil, fmt.Errorf("read %s: row with %d fields", path, len(rec))
		}
		l := types.LeadRecord{PlaceID: rec[0], Name: rec[1], Address: rec[2], Phone: rec[3]}
		if rec[4] != "" {
			site := rec[4]
			l.Website = &site
		}
		if len(rec) == 7 {
			lat, latErr := strconv.ParseFloat(rec[5], 64)
			lng, lngErr := strconv.ParseFloat(rec[6], 64)
			if latErr != nil || lngErr != nil {
				return nil, fmt.Errorf("read %s: bad location for %s", path, rec[0])
			}
			l.Location = types.GeoPoint{Latitude: lat, Longitude: lng}
		}
		leads = append(leads, l)
	}
	return leads, nil
}

// saveLead appends the lead to the shortlist unless its place ID is already there.
// It reports whether a row was written.
func saveLead(path string, lead types.LeadRecord) (bool, error) {
	existing, err := loadLeads(path)
	if err != nil {
		return false, err
	}
	for _, l := range existing {
		if l.PlaceID == lead.PlaceID {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		lead.PlaceID, lead.Name, lead.Address, lead.Phone, lead.WebsiteURL(),
		strconv.FormatFloat(lead.Location.Latitude, 'f', 6, 64),
		strconv.FormatFloat(lead.Location.Longitude, 'f', 6, 64),
	}
	if err := w.Write(row); err != nil {
		return false, err
	}
	w.Flush()
	return true, w.Error()
}

// showLeads loads the saved leads and presents them in an interactive list similar to
// search results.
func showLeads(path string, color bool) {
	leads, err := loadLeads(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load leads: %v\n", err)
		return
	}
	if len(leads) == 0 {
		fmt.Println("No leads saved yet. Use --interactive on a search to add businesses to your leads list.")
		return
	}

	lines := renderTable(os.Stdout, leads, color)
	fmt.Println("Use ↑/↓ and Enter for details, Esc to exit.")
	interactiveSelect(leads, lines, "")
}
