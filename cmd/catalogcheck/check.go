package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/couchcryptid/floodview/internal/domain"
)

// phase tracks pass/fail for a validation phase. Notes are reported but only
// fail the phase in strict mode.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed(strict bool) bool {
	return len(p.errors) == 0 && (!strict || len(p.notes) == 0)
}

// rawAOICatalog mirrors geojson_files.json without the four-reference
// constraint so malformed entries can be reported individually.
type rawAOICatalog map[string]map[string]map[string][]string

// checkCatalogs runs every phase against the raw catalog files.
func checkCatalogs(imagesRaw, aoisRaw []byte) []*phase {
	structure := &phase{name: "Phase 1: Structure"}

	var images domain.ImageCatalog
	if err := json.Unmarshal(imagesRaw, &images); err != nil {
		structure.errorf("%s: %v", "satellite_images.json", err)
	}
	var aois rawAOICatalog
	if err := json.Unmarshal(aoisRaw, &aois); err != nil {
		structure.errorf("%s: %v", "geojson_files.json", err)
	}
	if len(structure.errors) > 0 {
		return []*phase{structure}
	}

	checkStructure(structure, aois)
	return []*phase{
		structure,
		checkImages(images),
		checkCoverage(aois, images),
		checkExtents(aois),
	}
}

func checkStructure(p *phase, aois rawAOICatalog) {
	if len(aois) == 0 {
		p.errorf("no models")
	}
	forEachAOI(aois, func(model, aoi string, byDate map[string][]string) {
		if len(byDate) == 0 {
			p.errorf("%s/%s: no dates", model, aoi)
		}
		for _, date := range sortedKeys(byDate) {
			refs := byDate[date]
			if len(refs) != domain.LayerKindCount {
				p.errorf("%s/%s/%s: %d layer references, want %d", model, aoi, date, len(refs), domain.LayerKindCount)
				continue
			}
			for i, ref := range refs {
				if ref == "" {
					p.errorf("%s/%s/%s: empty %s reference", model, aoi, date, domain.LayerKinds[i])
				}
			}
			if _, err := time.Parse(domain.ISO8601Date, date); err != nil {
				p.notef("%s/%s: date %q is not YYYY-MM-DD (label %q)", model, aoi, date, domain.FormatDateLabel(date))
			}
		}
	})
}

func checkImages(images domain.ImageCatalog) *phase {
	p := &phase{name: "Phase 2: Satellite Images"}
	for _, aoi := range sortedKeys(images) {
		for _, date := range sortedKeys(images[aoi]) {
			img := images[aoi][date]
			if img.Src == "" {
				p.errorf("%s/%s: empty src", aoi, date)
			}
			if img.Min > img.Max {
				p.errorf("%s/%s: min %g greater than max %g", aoi, date, img.Min, img.Max)
			}
		}
	}
	return p
}

func checkCoverage(aois rawAOICatalog, images domain.ImageCatalog) *phase {
	p := &phase{name: "Phase 3: Image Coverage"}
	forEachAOI(aois, func(model, aoi string, byDate map[string][]string) {
		for _, date := range sortedKeys(byDate) {
			if _, ok := images.Lookup(aoi, date); !ok {
				p.notef("%s/%s/%s: no satellite image", model, aoi, date)
			}
		}
	})
	return p
}

func checkExtents(aois rawAOICatalog) *phase {
	p := &phase{name: "Phase 4: AOI Extents"}
	forEachAOI(aois, func(model, aoi string, _ map[string][]string) {
		if _, ok := domain.ExtentFor(aoi); !ok {
			p.notef("%s/%s: no known extent, view will not be fitted", model, aoi)
		}
	})
	return p
}

// report prints the phase summary and details. It returns false when any
// phase failed.
func report(w io.Writer, phases []*phase, strict bool) bool {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed(strict) {
			status = fmt.Sprintf("\033[31mFAIL (%d errors, %d notes)\033[0m", len(p.errors), len(p.notes))
			allPassed = false
		} else if len(p.notes) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d notes)\033[0m", len(p.notes))
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.notes) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
		for _, n := range p.notes {
			fmt.Fprintf(w, "  note: %s\n", n)
		}
	}
	return allPassed
}

func forEachAOI(aois rawAOICatalog, fn func(model, aoi string, byDate map[string][]string)) {
	for _, model := range sortedKeys(aois) {
		for _, aoi := range sortedKeys(aois[model]) {
			fn(model, aoi, aois[model][aoi])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
