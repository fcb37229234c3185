package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"

	"leadfinder/internal/types"
)

// Attribute columns of the map layer. DBF field names are capped at 10 characters.
const (
	FieldName    = "NAME"
	FieldAddress = "ADDRESS"
	FieldPhone   = "PHONE"
	FieldWebsite = "WEBSITE"
	FieldNoSite  = "NO_SITE"
)

var fieldNames = []string{FieldName, FieldAddress, FieldPhone, FieldWebsite, FieldNoSite}

var shapeFields = []shp.Field{
	shp.StringField(FieldName, 120),
	shp.StringField(FieldAddress, 200),
	shp.StringField(FieldPhone, 40),
	shp.StringField(FieldWebsite, 200),
	shp.StringField(FieldNoSite, 1),
}

// WriteShapefile writes the leads as a point layer at path (.shp, with .shx and .dbf alongside).
// NO_SITE is "Y" for listings without a website so a GIS viewer can style them apart.
func WriteShapefile(path string, leads []types.LeadRecord) error {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		path += ".shp"
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	err = writePoints(w, leads)
	w.Close()
	if err != nil {
		return err
	}
	return fixAttributeFile(path)
}

func writePoints(w *shp.Writer, leads []types.LeadRecord) error {
	if err := w.SetFields(shapeFields); err != nil {
		return fmt.Errorf("set shapefile fields: %w", err)
	}

	for _, l := range leads {
		row := int(w.Write(&shp.Point{X: l.Location.Longitude, Y: l.Location.Latitude}))

		noSite := "N"
		if !l.HasWebsite() {
			noSite = "Y"
		}
		values := []string{l.Name, l.Address, l.Phone, l.WebsiteURL(), noSite}
		for i, v := range values {
			if err := w.WriteAttribute(row, i, truncate(v, int(shapeFields[i].Size))); err != nil {
				return fmt.Errorf("write %s for %s: %w", fieldNames[i], l.PlaceID, err)
			}
		}
	}
	return nil
}

// fixAttributeFile moves the attribute table go-shp v0.1.1 writes as "<base>dbf" to
// "<base>.dbf", where shp.Open and GIS tools look for it.
func fixAttributeFile(shpPath string) error {
	base := shpPath[:len(shpPath)-len(filepath.Ext(shpPath))]
	written := base + "dbf"
	if _, err := os.Stat(written); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.Rename(written, base+".dbf"); err != nil {
		return fmt.Errorf("rename attribute table: %w", err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
