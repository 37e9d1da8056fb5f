package models

// UIFilter is the user's current view selection. SelectedDeviceID is a weak
// reference and may name a device that no longer exists.
type UIFilter struct {
	ActiveSector     SectorFilter `json:"activeSector"`
	SearchTerm       string       `json:"searchTerm"`
	SelectedDeviceID string       `json:"selectedDeviceId,omitempty"`
}
