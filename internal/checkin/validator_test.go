package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTicketStore mirrors the repository's conditional-write semantics: the
// valid -> used transition is atomic under the mutex, as the real store's
// single conditional UPDATE is under the database.
type memTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newMemTicketStore(tickets ...*domain.Ticket) *memTicketStore {
	s := &memTicketStore{tickets: map[string]*domain.Ticket{}}
	for _, t := range tickets {
		s.tickets[t.Code] = t
	}
	return s
}

func (s *memTicketStore) MarkTicketUsed(ctx context.Context, eventID uuid.UUID, code string, scannerID uuid.UUID, method domain.CheckInMethod, now time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[code]
	if !ok || t.EventID != eventID || t.Status != domain.TicketValid {
		return nil, domain.ErrNotFound
	}
	t.Status = domain.TicketUsed
	t.ScannedAt = &now
	t.ScannedBy = &scannerID
	t.Method = &method
	copied := *t
	return &copied, nil
}

func (s *memTicketStore) GetTicketByCode(ctx context.Context, eventID uuid.UUID, code string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[code]
	if !ok || t.EventID != eventID {
		return nil, domain.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

type memScanLog struct {
	mu       sync.Mutex
	rows     []domain.ScanLog
	fail     error
	failOnce error
}

func (l *memScanLog) Append(ctx context.Context, log domain.ScanLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failOnce != nil {
		err := l.failOnce
		l.failOnce = nil
		return err
	}
	if l.fail != nil {
		return l.fail
	}
	l.rows = append(l.rows, log)
	return nil
}

func (l *memScanLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func validTicket(eventID uuid.UUID, code string) *domain.Ticket {
	return &domain.Ticket{
		ID:        uuid.New(),
		EventID:   eventID,
		Code:      code,
		QRPayload: domain.QRPayload(eventID.String(), code),
		Status:    domain.TicketValid,
	}
}

func TestScanTicket_Idempotence(t *testing.T) {
	eventID := uuid.New()
	store := newMemTicketStore(validTicket(eventID, "ABC123"))
	log := &memScanLog{}
	v := NewValidator(store, log, observability.NewLogger())
	scanner := uuid.New()

	req := ScanRequest{Identifier: "ABC123", EventID: eventID, ScannerID: scanner, Method: domain.CheckInQR}

	first, err := v.ScanTicket(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanValid, first.Result)
	require.NotNil(t, first.Ticket)
	assert.Equal(t, domain.TicketUsed, first.Ticket.Status)
	assert.Equal(t, scanner, *first.Ticket.ScannedBy)

	second, err := v.ScanTicket(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.ScanAlreadyUsed, second.Result)
	require.NotNil(t, second.Ticket)
	assert.Equal(t, domain.TicketUsed, second.Ticket.Status)

	third, err := v.ScanTicket(context.Background(), ScanRequest{Identifier: "ZZZZZZ", EventID: eventID, ScannerID: scanner, Method: domain.CheckInQR})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanInvalid, third.Result)

	assert.Equal(t, 3, log.count(), "one ScanLog row per attempt")
}

func TestScanTicket_QRAndManualConverge(t *testing.T) {
	eventID := uuid.New()
	ticket := validTicket(eventID, "ABC123")
	store := newMemTicketStore(ticket)
	log := &memScanLog{}
	v := NewValidator(store, log, observability.NewLogger())

	res, err := v.ScanTicket(context.Background(), ScanRequest{Identifier: ticket.QRPayload, EventID: eventID, ScannerID: uuid.New(), Method: domain.CheckInQR})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanValid, res.Result)

	// Lowercase manual entry resolves the same record.
	res, err = v.ManualCheckIn(context.Background(), ScanRequest{Identifier: "abc123", EventID: eventID, ScannerID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanAlreadyUsed, res.Result)
	assert.Equal(t, ticket.ID, res.Ticket.ID)
	assert.Equal(t, domain.CheckInManual, log.rows[1].Method)
}

func TestScanTicket_MalformedIdentifierStillLogged(t *testing.T) {
	eventID := uuid.New()
	log := &memScanLog{}
	v := NewValidator(newMemTicketStore(), log, observability.NewLogger())

	res, err := v.ScanTicket(context.Background(), ScanRequest{Identifier: "not-a-ticket-code", EventID: eventID, ScannerID: uuid.New(), Method: domain.CheckInManual})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanInvalid, res.Result)
	assert.Equal(t, 1, log.count())
}

func TestScanTicket_CancelledIsInvalid(t *testing.T) {
	eventID := uuid.New()
	ticket := validTicket(eventID, "ABC123")
	ticket.Status = domain.TicketCancelled
	log := &memScanLog{}
	v := NewValidator(newMemTicketStore(ticket), log, observability.NewLogger())

	res, err := v.ScanTicket(context.Background(), ScanRequest{Identifier: "ABC123", EventID: eventID, ScannerID: uuid.New(), Method: domain.CheckInQR})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanInvalid, res.Result)
	assert.Equal(t, 1, log.count())
}

func TestScanTicket_RaceYieldsOneValid(t *testing.T) {
	eventID := uuid.New()
	store := newMemTicketStore(validTicket(eventID, "ABC123"))
	log := &memScanLog{}
	v := NewValidator(store, log, observability.NewLogger())

	const scanners = 8
	results := make(chan domain.ScanClassification, scanners)
	var wg sync.WaitGroup
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := v.ScanTicket(context.Background(), ScanRequest{Identifier: "abc123", EventID: eventID, ScannerID: uuid.New(), Method: domain.CheckInQR})
			if err != nil {
				t.Error(err)
				return
			}
			results <- res.Result
		}()
	}
	wg.Wait()
	close(results)

	valid, alreadyUsed := 0, 0
	for r := range results {
		switch r {
		case domain.ScanValid:
			valid++
		case domain.ScanAlreadyUsed:
			alreadyUsed++
		}
	}
	assert.Equal(t, 1, valid, "exactly one scanner wins")
	assert.Equal(t, scanners-1, alreadyUsed)
	assert.Equal(t, scanners, log.count())
}

func TestScanTicket_AuditRetryRecoversWinningScan(t *testing.T) {
	eventID := uuid.New()
	store := newMemTicketStore(validTicket(eventID, "ABC123"))
	log := &memScanLog{failOnce: errors.New("mongo: transient timeout")}
	v := NewValidator(store, log, observability.NewLogger())

	// The ticket is consumed before the append; a transient audit failure
	// must not lose the winning attempt.
	res, err := v.ScanTicket(context.Background(), ScanRequest{Identifier: "ABC123", EventID: eventID, ScannerID: uuid.New(), Method: domain.CheckInQR})
	require.NoError(t, err)
	assert.Equal(t, domain.ScanValid, res.Result)
	assert.Equal(t, 1, log.count())
}

func TestScanTicket_AuditFailureSurfaces(t *testing.T) {
	eventID := uuid.New()
	log := &memScanLog{fail: errors.New("mongo unreachable")}
	v := NewValidator(newMemTicketStore(validTicket(eventID, "ABC123")), log, observability.NewLogger())

	_, err := v.ScanTicket(context.Background(), ScanRequest{Identifier: "ABC123", EventID: eventID, ScannerID: uuid.New(), Method: domain.CheckInQR})
	assert.Error(t, err)
}
