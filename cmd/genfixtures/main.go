// Command genfixtures writes a deterministic fixture set for local
// development and tests: satellite_images.json, geojson_files.json and one
// GeoJSON file per prediction layer, covering every known AOI.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/fixtures -dates 4 -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/couchcryptid/floodview/internal/adapter/fixtures"
	"github.com/couchcryptid/floodview/internal/domain"
)

var baseDate = time.Date(2021, time.July, 1, 0, 0, 0, 0, time.UTC)

// options controls the generated fixture set.
type options struct {
	out    string
	models []string
	dates  int
	seed   uint64
	gaps   bool // drop the satellite image of each AOI's last date
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory")
	models := flag.String("models", "modelA,modelB", "comma-separated model names")
	dates := flag.Int("dates", 4, "dates per AOI")
	seed := flag.Uint64("seed", 1, "random seed for polygon placement")
	gaps := flag.Bool("gaps", false, "omit the satellite image for each AOI's last date")
	flag.Parse()

	if *out == "" || *dates < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flag -out, or -dates < 1")
	}

	stats, err := generate(options{
		out:    *out,
		models: strings.Split(*models, ","),
		dates:  *dates,
		seed:   *seed,
		gaps:   *gaps,
	})
	if err != nil {
		return err
	}
	log.Printf("wrote %d images, %d layer files for %d models to %s", stats.images, stats.layers, len(stats.models), *out)
	return nil
}

type genStats struct {
	models map[string]bool
	images int
	layers int
}

// generate writes the fixture set described by opts.
func generate(opts options) (genStats, error) {
	stats := genStats{models: map[string]bool{}}
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))

	// A fake clock keeps the date keys reproducible.
	clock := clockwork.NewFakeClockAt(baseDate)
	dates := make([]string, 0, opts.dates)
	for range opts.dates {
		dates = append(dates, clock.Now().Format(domain.ISO8601Date))
		clock.Advance(6 * 24 * time.Hour)
	}

	images := domain.ImageCatalog{}
	aois := domain.AOICatalog{}

	for _, aoi := range domain.KnownAOIs() {
		extent, _ := domain.ExtentFor(aoi)
		images[aoi] = map[string]domain.SatelliteImage{}
		for i, date := range dates {
			if opts.gaps && i == len(dates)-1 {
				continue
			}
			images[aoi][date] = domain.SatelliteImage{
				Src: fmt.Sprintf("%s/%s_%s.tif", aoi, strings.ToLower(aoi), strings.ReplaceAll(date, "-", "")),
				Min: 0,
				Max: 3000,
			}
			stats.images++
		}

		for _, model := range opts.models {
			model = strings.TrimSpace(model)
			if model == "" {
				continue
			}
			stats.models[model] = true
			if aois[model] == nil {
				aois[model] = map[string]map[string]domain.LayerRefs{}
			}
			aois[model][aoi] = map[string]domain.LayerRefs{}

			for _, date := range dates {
				var refs domain.LayerRefs
				for _, kind := range domain.LayerKinds {
					ref := fmt.Sprintf("%s/%s/%s/%s.geojson", model, aoi, date, kind)
					if err := writeJSON(filepath.Join(opts.out, ref), layerFeatures(rng, extent, kind)); err != nil {
						return stats, fmt.Errorf("writing %s: %w", ref, err)
					}
					refs[kind] = ref
					stats.layers++
				}
				aois[model][aoi][date] = refs
			}
		}
	}

	if err := writeJSON(filepath.Join(opts.out, fixtures.ImagesFile), images); err != nil {
		return stats, fmt.Errorf("writing image catalog: %w", err)
	}
	if err := writeJSON(filepath.Join(opts.out, fixtures.AOIsFile), aois); err != nil {
		return stats, fmt.Errorf("writing aoi catalog: %w", err)
	}
	return stats, nil
}

// layerFeatures places a few square MultiPolygons inside the extent and
// projects them to WGS84. Higher-risk layers get fewer, smaller patches.
func layerFeatures(rng *rand.Rand, extent domain.Extent, kind domain.LayerKind) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	n := 1 + (domain.LayerKindCount - int(kind))
	size := min(extent.Width(), extent.Height()) / float64(4+int(kind))

	for range n {
		x := extent[0] + rng.Float64()*(extent.Width()-size)
		y := extent[1] + rng.Float64()*(extent.Height()-size)
		square := orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}

		g := project.Geometry(orb.MultiPolygon{square}, project.Mercator.ToWGS84)
		f := geojson.NewFeature(g)
		f.Properties["layer"] = kind.String()
		fc.Append(f)
	}
	return fc
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
