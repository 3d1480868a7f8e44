// Package checkin validates tickets at the door and keeps the scan audit
// trail.
package checkin

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
)

type TicketStore interface {
	MarkTicketUsed(ctx context.Context, eventID uuid.UUID, code string, scannerID uuid.UUID, method domain.CheckInMethod, now time.Time) (*domain.Ticket, error)
	GetTicketByCode(ctx context.Context, eventID uuid.UUID, code string) (*domain.Ticket, error)
}

type ScanLogger interface {
	Append(ctx context.Context, log domain.ScanLog) error
}

type Validator struct {
	tickets TicketStore
	scanLog ScanLogger
	logger  observability.Logger
}

func NewValidator(tickets TicketStore, scanLog ScanLogger, logger observability.Logger) *Validator {
	return &Validator{tickets: tickets, scanLog: scanLog, logger: logger}
}

type ScanRequest struct {
	Identifier  string
	EventID     uuid.UUID
	ScannerID   uuid.UUID
	ScannerName string
	DeviceInfo  string
	Method      domain.CheckInMethod
}

type ScanResult struct {
	Result domain.ScanClassification `json:"scan_result"`
	Ticket *domain.Ticket            `json:"ticket,omitempty"`
}

// ScanTicket classifies one scan attempt. Not-found and already-used are
// reported outcomes, not errors; only infrastructure failures return err.
// Exactly one ScanLog row is appended per attempt, whatever the outcome.
func (v *Validator) ScanTicket(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	now := time.Now()

	code, codeErr := domain.CodeFromIdentifier(req.Identifier)
	if codeErr != nil {
		// Log the raw input so fraud attempts stay visible in the trail.
		code = strings.ToUpper(strings.TrimSpace(req.Identifier))
		return v.finish(ctx, req, code, now, &ScanResult{Result: domain.ScanInvalid})
	}

	// The transition valid -> used happens in one conditional write; if it
	// misses we only read to tell already_used apart from invalid.
	ticket, err := v.tickets.MarkTicketUsed(ctx, req.EventID, code, req.ScannerID, req.Method, now)
	if err == nil {
		return v.finish(ctx, req, code, now, &ScanResult{Result: domain.ScanValid, Ticket: ticket})
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	existing, err := v.tickets.GetTicketByCode(ctx, req.EventID, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return v.finish(ctx, req, code, now, &ScanResult{Result: domain.ScanInvalid})
		}
		return nil, err
	}
	if existing.Status == domain.TicketUsed {
		return v.finish(ctx, req, code, now, &ScanResult{Result: domain.ScanAlreadyUsed, Ticket: existing})
	}
	// Cancelled or refunded tickets scan as invalid.
	return v.finish(ctx, req, code, now, &ScanResult{Result: domain.ScanInvalid, Ticket: existing})
}

// ManualCheckIn is the staff fallback when the QR will not read.
func (v *Validator) ManualCheckIn(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	req.Method = domain.CheckInManual
	return v.ScanTicket(ctx, req)
}

func (v *Validator) finish(ctx context.Context, req ScanRequest, code string, now time.Time, result *ScanResult) (*ScanResult, error) {
	entry := domain.ScanLog{
		ID:          uuid.New(),
		EventID:     req.EventID,
		TicketCode:  code,
		Result:      result.Result,
		Method:      req.Method,
		ScannerID:   req.ScannerID,
		ScannerName: req.ScannerName,
		DeviceInfo:  req.DeviceInfo,
		ScannedAt:   now,
	}
	err := v.scanLog.Append(ctx, entry)
	if err != nil {
		// A valid scan has already consumed the ticket by this point, so
		// losing the append would lose the winning attempt. Retry once with
		// the same id before surfacing the failure.
		v.logger.WithField("ticket_code", code).Warn("scan log append failed, retrying", err)
		err = v.scanLog.Append(ctx, entry)
	}
	if err != nil {
		// The audit trail is ground truth; a scan we cannot record is an
		// infrastructure failure.
		return nil, err
	}
	observability.ScanResultsTotal.WithLabelValues(string(result.Result), string(req.Method)).Inc()
	return result, nil
}
