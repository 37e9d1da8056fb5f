package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/HerbHall/wlanmon/pkg/models"
)

// PageSize is the number of table rows per page.
const PageSize = 10

// SortDir is ascending or descending.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// ParseSortDir defaults to ascending.
func ParseSortDir(s string) SortDir {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// Sortable device columns, named after their JSON fields.
var sortColumns = map[string]func(a, b models.Device) int{
	"id":          func(a, b models.Device) int { return strings.Compare(a.ID, b.ID) },
	"sector":      func(a, b models.Device) int { return strings.Compare(string(a.Sector), string(b.Sector)) },
	"location":    func(a, b models.Device) int { return strings.Compare(a.Location, b.Location) },
	"rssi":        func(a, b models.Device) int { return cmp.Compare(a.RSSI, b.RSSI) },
	"bandwidth":   func(a, b models.Device) int { return cmp.Compare(a.Bandwidth, b.Bandwidth) },
	"clients":     func(a, b models.Device) int { return cmp.Compare(a.Clients, b.Clients) },
	"errorRate":   func(a, b models.Device) int { return cmp.Compare(a.ErrorRate, b.ErrorRate) },
	"temperature": func(a, b models.Device) int { return cmp.Compare(a.Temperature, b.Temperature) },
	"status":      func(a, b models.Device) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"lastSeen":    func(a, b models.Device) int { return a.LastSeen.Compare(b.LastSeen) },
}

// ValidSortColumn reports whether column can be sorted on.
func ValidSortColumn(column string) bool {
	_, ok := sortColumns[column]
	return ok
}

// SortDevices returns a sorted copy of devices. Numeric columns compare
// numerically and the rest lexically; ties keep their input order. An
// unknown column sorts by id.
func SortDevices(devices []models.Device, column string, dir SortDir) []models.Device {
	less, ok := sortColumns[column]
	if !ok {
		less = sortColumns["id"]
	}
	out := slices.Clone(devices)
	slices.SortStableFunc(out, func(a, b models.Device) int {
		if dir == Desc {
			return less(b, a)
		}
		return less(a, b)
	})
	return out
}

// Page is one page of table rows.
type Page struct {
	Rows       []models.Device `json:"rows"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	Total      int             `json:"total"`
}

// Paginate returns page number page (1-based) of size rows. The page is
// clamped to [1, TotalPages]; an empty input has one empty page.
func Paginate(devices []models.Device, page, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	totalPages := max(1, (len(devices)+size-1)/size)
	page = max(1, min(page, totalPages))

	start := (page - 1) * size
	end := min(start+size, len(devices))
	rows := make([]models.Device, 0, end-start)
	rows = append(rows, devices[start:end]...)
	return Page{Rows: rows, Page: page, TotalPages: totalPages, Total: len(devices)}
}

// Table sorts and paginates devices in one step.
func Table(devices []models.Device, column string, dir SortDir, page int) Page {
	return Paginate(SortDevices(devices, column, dir), page, PageSize)
}

// formatOneDecimal renders a float the way the table shows it.
func formatOneDecimal(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
