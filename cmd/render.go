package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"leadfinder/internal/places"
	"leadfinder/internal/search"
	"leadfinder/internal/types"
)

const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

const noWebsite = "(no website)"

// clip shortens s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// leadLine is the one-line form used in the table and the interactive list.
func leadLine(l types.LeadRecord) string {
	site := l.WebsiteURL()
	if site == "" {
		site = noWebsite
	}
	return fmt.Sprintf("%-32s | %-16s | %s", clip(l.Name, 32), clip(l.Phone, 16), site)
}

// renderTable prints the leads and returns the uncoloured lines for reuse by the interactive list.
// With color on, listings without a website are highlighted since they are the best prospects.
func renderTable(w io.Writer, leads []types.LeadRecord, color bool) []string {
	lines := make([]string, 0, len(leads))
	fmt.Fprintf(w, "%-32s | %-16s | %s\n", "Name", "Phone", "Website")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, l := range leads {
		line := leadLine(l)
		lines = append(lines, line)
		if color && !l.HasWebsite() {
			fmt.Fprintf(w, "%s%s%s\n", colorGreen, line, colorReset)
			continue
		}
		fmt.Fprintln(w, line)
	}
	return lines
}

func renderSummary(w io.Writer, res *search.Result) {
	noSite := 0
	for _, l := range res.Leads {
		if !l.HasWebsite() {
			noSite++
		}
	}
	fmt.Fprintf(w, "Center %s | %d cells | %d hits | %d unique | %d excluded", res.Center, len(res.Cells),
		res.Candidates, res.Unique, res.Excluded)
	if res.OutsideBoundary > 0 {
		fmt.Fprintf(w, " | %d outside boundary", res.OutsideBoundary)
	}
	fmt.Fprintf(w, " | %d leads (%d without website) in %v\n", len(res.Leads), noSite, res.Elapsed.Round(time.Millisecond))
	for _, ce := range res.Skipped {
		fmt.Fprintf(w, "%s[Skipped]%s cell %d at %s: %v\n", colorYellow, colorReset, ce.Index, ce.Center, ce.Err)
	}
}

func renderLeadDetail(w io.Writer, l types.LeadRecord) {
	site := l.WebsiteURL()
	if site == "" {
		site = noWebsite
	}
	fmt.Fprintf(w, "Name:     %s\n", l.Name)
	fmt.Fprintf(w, "Address:  %s\n", l.Address)
	fmt.Fprintf(w, "Phone:    %s\n", l.Phone)
	fmt.Fprintf(w, "Website:  %s\n", site)
	fmt.Fprintf(w, "Location: %s\n", l.Location)
	fmt.Fprintf(w, "Place ID: %s\n", l.PlaceID)
}

// userMessage turns pipeline errors into something a non-developer can act on.
func userMessage(err error) string {
	var apiErr *places.APIError
	switch {
	case errors.Is(err, places.ErrMissingAPIKey):
		return "Google API key is missing. Set GCP_API_KEY in your environment, .env file or config file."
	case errors.Is(err, places.ErrLocationNotFound):
		return "Could not find that location. Check the address and try again."
	case errors.Is(err, context.Canceled):
		return "Search cancelled."
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return fmt.Sprintf("Google %s request failed (%s): %s", apiErr.Endpoint, apiErr.Status, apiErr.Message)
		}
		return fmt.Sprintf("Google %s request failed (%s).", apiErr.Endpoint, apiErr.Status)
	default:
		return err.Error()
	}
}
