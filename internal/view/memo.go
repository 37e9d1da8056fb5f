package view

import (
	"sync"

	"github.com/HerbHall/wlanmon/internal/state"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// Source is the read side of the state store.
type Source interface {
	Version() uint64
	Filter() models.UIFilter
	Snapshot() state.Snapshot
}

// Dashboard is the derived view for one (version, filter) pair.
type Dashboard struct {
	Version  uint64          `json:"version"`
	Filter   models.UIFilter `json:"filter"`
	Sectors  []SectorTab     `json:"sectors"`
	Filtered []models.Device `json:"-"`
	Summary  Summary         `json:"summary"`
	Selected *models.Device  `json:"selected,omitempty"`
}

type memoKey struct {
	version uint64
	filter  models.UIFilter
}

// Memo caches the Dashboard and recomputes it only when the store version
// or the filter changes. Callers must not modify the returned slices.
type Memo struct {
	src Source

	mu       sync.Mutex
	key      memoKey
	value    Dashboard
	valid    bool
	computed int
}

// NewMemo returns a Memo reading from src.
func NewMemo(src Source) *Memo {
	return &Memo{src: src}
}

// Dashboard returns the current derived view.
func (m *Memo) Dashboard() Dashboard {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoKey{version: m.src.Version(), filter: m.src.Filter()}
	if m.valid && key == m.key {
		return m.value
	}

	snap := m.src.Snapshot()
	m.key = memoKey{version: snap.Version, filter: snap.Filter}
	m.value = Compute(snap)
	m.valid = true
	m.computed++
	return m.value
}

// Computations returns how many times the view has been recomputed.
func (m *Memo) Computations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computed
}

// Compute derives the dashboard from a snapshot without caching.
func Compute(snap state.Snapshot) Dashboard {
	filtered := FilterDevices(snap.Devices, snap.Filter.ActiveSector, snap.Filter.SearchTerm)
	d := Dashboard{
		Version:  snap.Version,
		Filter:   snap.Filter,
		Sectors:  SectorTabs(snap.Devices),
		Filtered: filtered,
		Summary:  Summarize(filtered, snap.Alerts),
	}
	if id := snap.Filter.SelectedDeviceID; id != "" {
		for i := range snap.Devices {
			if snap.Devices[i].ID == id {
				sel := snap.Devices[i]
				d.Selected = &sel
				break
			}
		}
	}
	return d
}
