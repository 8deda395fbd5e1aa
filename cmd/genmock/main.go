// Command genmock writes a synthetic tent detection file and one facility
// file per catalogue category, exercising the messy inputs the pipeline has
// to tolerate: mixed coordinate header conventions, stray text in numeric
// cells, swapped columns, a byte-order mark, a file without coordinates, and
// a category with no file at all.
//
// Usage:
//
//	go run ./cmd/genmock -out data/raw -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// Downtown San Diego.
const (
	centerLat = 32.7157
	centerLon = -117.1611
)

// layout describes how a generated facility file is shaped.
type layout struct {
	latCol, lonCol string
	swapped        bool // latitude values written under the longitude header
	noCoords       bool
	bom            bool
	skip           bool
}

// layouts assigns a file shape per category prefix; unlisted categories use
// plain lat/lon headers.
var layouts = map[string]layout{
	"transit":        {latCol: "stop_lat", lonCol: "stop_lon"},
	"health":         {latCol: "POINT_Y", lonCol: "POINT_X", bom: true},
	"library":        {latCol: "Latitude", lonCol: "Longitude", swapped: true},
	"gas":            {latCol: "y", lonCol: "x"},
	"business":       {noCoords: true},
	"afford_housing": {skip: true},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/raw", "output directory")
	seed := flag.Uint64("seed", 42, "random seed")
	tents := flag.Int("tents", 60, "number of tent detections")
	perCategory := flag.Int("per-category", 40, "facility rows per category")
	spread := flag.Float64("spread", 0.02, "coordinate spread in degrees around the center")
	flag.Parse()

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	g := generator{rng: rng, spread: *spread}

	tentsPath := filepath.Join(*out, "Tents.csv")
	if err := writeCSV(tentsPath, false, g.tentRows(*tents)); err != nil {
		return fmt.Errorf("writing tents: %w", err)
	}
	log.Printf("wrote %s (%d detections)", tentsPath, *tents)

	dir := filepath.Join(*out, "facilities")
	for _, cat := range domain.DefaultCatalogue().Categories() {
		l, ok := layouts[cat.Prefix]
		if !ok {
			l = layout{latCol: "lat", lonCol: "lon"}
		}
		if l.skip {
			log.Printf("%s: skipped (missing category)", cat.Name)
			continue
		}
		path := filepath.Join(dir, cat.FileName())
		if err := writeCSV(path, l.bom, g.facilityRows(l, *perCategory)); err != nil {
			return fmt.Errorf("writing %s: %w", cat.Name, err)
		}
		log.Printf("%s: %d rows", cat.Name, *perCategory)
	}
	return nil
}

type generator struct {
	rng    *rand.Rand
	spread float64
}

func (g generator) point() (float64, float64) {
	return centerLat + (g.rng.Float64()*2-1)*g.spread, centerLon + (g.rng.Float64()*2-1)*g.spread
}

// noisy formats v the way hand-maintained exports do: usually clean,
// sometimes padded, annotated, blank, or garbage.
func (g generator) noisy(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	switch r := g.rng.IntN(20); {
	case r == 0:
		return ""
	case r == 1:
		return "N/A"
	case r == 2:
		return " " + s + " "
	case r == 3:
		return s + "°"
	default:
		return s
	}
}

func (g generator) tentRows(n int) [][]string {
	rows := [][]string{{"detection_id", "confidence", "lat", "lon"}}
	for i := range n {
		lat, lon := g.point()
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(0.5+g.rng.Float64()/2, 'f', 2, 64),
			g.noisy(lat),
			g.noisy(lon),
		})
	}
	// One detection off the map.
	rows = append(rows, []string{strconv.Itoa(n + 1), "0.99", "132.7", "-117.16"})
	return rows
}

func (g generator) facilityRows(l layout, n int) [][]string {
	if l.noCoords {
		rows := [][]string{{"name", "address"}}
		for i := range n {
			rows = append(rows, []string{fmt.Sprintf("Site %d", i+1), fmt.Sprintf("%d Market St", 100+i)})
		}
		return rows
	}

	rows := [][]string{{"name", l.latCol, l.lonCol}}
	for i := range n {
		lat, lon := g.point()
		if l.swapped {
			lat, lon = lon, lat
		}
		rows = append(rows, []string{fmt.Sprintf("Facility %d", i+1), g.noisy(lat), g.noisy(lon)})
	}
	return rows
}

func writeCSV(path string, bom bool, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if bom {
		if _, err := f.WriteString("\ufeff"); err != nil {
			return err
		}
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
