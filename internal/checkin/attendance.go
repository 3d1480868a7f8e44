package checkin

import (
	"context"

	"github.com/google/uuid"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
)

type AttendanceStore interface {
	CountAttendance(ctx context.Context, eventID uuid.UUID) (crdb.AttendanceCounts, error)
	TableAttendance(ctx context.Context, eventID uuid.UUID) ([]crdb.TableAttendance, error)
}

type TableBreakdown struct {
	Label   string `json:"label"`
	Total   int    `json:"total"`
	Scanned int    `json:"scanned"`
}

// AttendanceReport is computed on demand by aggregating ticket rows; it is
// never persisted.
type AttendanceReport struct {
	TotalTickets   int              `json:"total_tickets"`
	ScannedTickets int              `json:"scanned_tickets"`
	AttendanceRate float64          `json:"attendance_rate"`
	Tables         []TableBreakdown `json:"tables,omitempty"`
}

func Attendance(ctx context.Context, store AttendanceStore, eventID uuid.UUID) (*AttendanceReport, error) {
	counts, err := store.CountAttendance(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tables, err := store.TableAttendance(ctx, eventID)
	if err != nil {
		return nil, err
	}

	report := &AttendanceReport{
		TotalTickets:   counts.Total,
		ScannedTickets: counts.Scanned,
	}
	if counts.Total > 0 {
		report.AttendanceRate = float64(counts.Scanned) / float64(counts.Total)
	}
	for _, t := range tables {
		report.Tables = append(report.Tables, TableBreakdown{Label: t.SeatLabel, Total: t.Total, Scanned: t.Scanned})
	}
	return report, nil
}
