package models

// SectorIcon maps a sector filter to its icon identifier.
// Identifiers use Lucide icon names (https://lucide.dev) for
// compatibility with the React dashboard.
var SectorIcon = map[SectorFilter]string{
	SectorAll:                      "grid-3x3",
	SectorFilter(SectorEducation):  "library",
	SectorFilter(SectorHealthcare): "hospital",
	SectorFilter(SectorLogistics):  "truck",
	SectorFilter(SectorGovernment): "building-2",
}

var sectorLabel = map[SectorFilter]string{
	SectorAll:                      "All Devices",
	SectorFilter(SectorEducation):  "Education",
	SectorFilter(SectorHealthcare): "Healthcare",
	SectorFilter(SectorLogistics):  "Logistics",
	SectorFilter(SectorGovernment): "Government",
}

// Icon returns the icon identifier for a SectorFilter.
// Returns "circle-help" for unrecognised sectors.
func (f SectorFilter) Icon() string {
	if icon, ok := SectorIcon[f]; ok {
		return icon
	}
	return "circle-help"
}

// Label returns the human-readable name of a SectorFilter.
func (f SectorFilter) Label() string {
	if l, ok := sectorLabel[f]; ok {
		return l
	}
	return string(f)
}
