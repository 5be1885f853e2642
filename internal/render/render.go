// Package render formats gateway results for the terminal.
package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	liptable "github.com/charmbracelet/lipgloss/table"

	"github.com/ApolloMedTech/HealthcareRecords/internal/gateway"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	// 9999-12-31 23:59:59 UTC
	maxTimestamp = 253402300799
)

var (
	headerStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("245"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("252"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

// Timestamp renders unix seconds in loc. A nil loc means local time.
// Values past year 9999 are printed as the raw number.
func Timestamp(ts uint64, loc *time.Location) string {
	if ts > maxTimestamp {
		return strconv.FormatUint(ts, 10)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(int64(ts), 0).In(loc).Format(timestampLayout)
}

// Records renders records as a table in the order given.
func Records(records []gateway.Record, loc *time.Location) string {
	if len(records) == 0 {
		return mutedStyle.Render("No records found for this patient.")
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatUint(r.RecordID, 10),
			r.PatientName,
			r.Diagnosis,
			r.Treatment,
			Timestamp(r.Timestamp, loc),
		})
	}

	t := liptable.New().
		Headers("Record ID", "Patient Name", "Diagnosis", "Treatment", "Timestamp").
		Rows(rows...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("250"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == liptable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// Connection renders the connected account banner.
func Connection(snap gateway.Snapshot) string {
	role := mutedStyle.Render("provider")
	if snap.IsOwner {
		role = okStyle.Render("contract owner")
	}
	return fmt.Sprintf("Connected Account: %s (%s)", snap.AccountAddress, role)
}

// Success renders a confirmation line.
func Success(msg string) string {
	return okStyle.Render(msg)
}

// Warning renders a non-fatal notice.
func Warning(msg string) string {
	return warnStyle.Render(msg)
}

// Error renders a failure as "<kind>: <message>".
func Error(err error) string {
	return errorStyle.Render(err.Error())
}
