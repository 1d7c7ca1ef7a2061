package appointments

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvHeader matches the spreadsheet layout staff already use.
var csvHeader = []string{"ID", "Nombre", "Teléfono", "Email", "Tipo de Cita", "Fecha", "Hora", "Estado", "Fecha de Creación"}

// WriteCSV writes appts as CSV with a header row.
func WriteCSV(w io.Writer, appts []Appointment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("appointments: write csv header: %w", err)
	}
	for _, a := range appts {
		record := []string{
			strconv.FormatInt(a.ID, 10),
			a.FullName,
			a.Phone,
			a.Email,
			a.Kind.Label(),
			a.Date,
			a.Time,
			string(a.Status),
			a.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("appointments: write csv row %d: %w", a.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("appointments: flush csv: %w", err)
	}
	return nil
}

// ExportFilename names an export taken at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("citas_export_%s.csv", t.Format("20060102_150405"))
}
