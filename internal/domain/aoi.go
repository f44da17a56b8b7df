package domain

// Extent is a bounding box in Web Mercator (EPSG:3857) map units:
// [minX, minY, maxX, maxY].
type Extent [4]float64

// Width returns the horizontal size of the extent.
func (e Extent) Width() float64 { return e[2] - e[0] }

// Height returns the vertical size of the extent.
func (e Extent) Height() float64 { return e[3] - e[1] }

// Known areas of interest.
const (
	AOIKiskore     = "Kiskore"
	AOIKanyahaza   = "Kanyahaza"
	AOIPusztazamor = "Pusztazamor"
	AOIRaho        = "Raho"
	AOIDrina       = "Drina"
)

var aoiExtents = map[string]Extent{
	AOIKiskore:     {2283300, 6021945, 2284684, 6023968},
	AOIKanyahaza:   {2588995, 6087354, 2597328, 6091368},
	AOIPusztazamor: {2090012, 6002140, 2095385, 6005579},
	AOIRaho:        {2693024, 6114066, 2693905, 6114776},
	AOIDrina:       {2145189, 5426572, 2147977, 5430040},
}

// ExtentFor returns the predefined extent of an AOI. Unknown AOIs report
// false and the caller should leave the view where it is.
func ExtentFor(aoi string) (Extent, bool) {
	e, ok := aoiExtents[aoi]
	return e, ok
}

// KnownAOIs lists the AOIs with a registered extent, sorted by name.
func KnownAOIs() []string {
	return sortedKeys(aoiExtents)
}
