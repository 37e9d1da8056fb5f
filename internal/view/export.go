package view

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/wlanmon/pkg/models"
)

// csvHeaders returns the export column headers.
func csvHeaders() []string {
	return []string{
		"Device ID", "Sector", "Location", "RSSI", "Bandwidth",
		"Clients", "ErrorRate", "Temperature", "Status", "LastSeen",
	}
}

// deviceToCSVRow converts a device to a row matching csvHeaders.
func deviceToCSVRow(d models.Device) []string {
	return []string{
		d.ID,
		string(d.Sector),
		d.Location,
		strconv.Itoa(d.RSSI),
		formatOneDecimal(d.Bandwidth),
		strconv.Itoa(d.Clients),
		formatOneDecimal(d.ErrorRate),
		formatOneDecimal(d.Temperature),
		string(d.Status),
		d.LastSeen.UTC().Format(time.RFC3339),
	}
}

// WriteCSV writes devices as CSV with every cell quoted. encoding/csv only
// quotes when needed, so rows are written directly.
func WriteCSV(w io.Writer, devices []models.Device) error {
	bw := bufio.NewWriter(w)
	if err := writeQuotedRow(bw, csvHeaders()); err != nil {
		return err
	}
	for _, d := range devices {
		if err := writeQuotedRow(bw, deviceToCSVRow(d)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportFilename names an export taken at t.
func ExportFilename(t time.Time) string {
	return "devices_" + strconv.FormatInt(t.UnixMilli(), 10) + ".csv"
}

func writeQuotedRow(w *bufio.Writer, cells []string) error {
	for i, c := range cells {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(c, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
