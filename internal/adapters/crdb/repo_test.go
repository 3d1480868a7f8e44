package crdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
	CREATE DATABASE IF NOT EXISTS stepperslife;
	CREATE TABLE IF NOT EXISTS stepperslife.events (
		id UUID PRIMARY KEY,
		seller_id UUID,
		name TEXT,
		description TEXT,
		location TEXT,
		starts_at TIMESTAMPTZ,
		ends_at TIMESTAMPTZ,
		mode TEXT,
		multi_day BOOL,
		cancelled BOOL DEFAULT false
	);
	CREATE TABLE IF NOT EXISTS stepperslife.event_days (
		id UUID PRIMARY KEY,
		event_id UUID,
		label TEXT,
		date TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS stepperslife.ticket_types (
		id UUID PRIMARY KEY,
		event_id UUID,
		event_day_id UUID,
		name TEXT,
		category TEXT,
		price DECIMAL,
		early_bird_price DECIMAL,
		early_bird_until TIMESTAMPTZ,
		allocated INT,
		sold INT DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS stepperslife.waiting_list (
		id UUID PRIMARY KEY,
		event_id UUID,
		buyer_email TEXT,
		status TEXT CHECK (status IN ('waiting', 'offered', 'purchased', 'expired')),
		offered_at TIMESTAMPTZ,
		offer_expires_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS stepperslife.purchases (
		id UUID PRIMARY KEY,
		event_id UUID,
		buyer_email TEXT,
		buyer_name TEXT,
		type TEXT,
		item_id UUID,
		quantity INT,
		total_amount DECIMAL,
		provider TEXT,
		provider_ref TEXT,
		status TEXT,
		refunded_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS stepperslife.table_configurations (
		id UUID PRIMARY KEY,
		event_id UUID,
		name TEXT,
		seat_count INT,
		price DECIMAL,
		sold INT DEFAULT 0,
		hidden BOOL DEFAULT false,
		share_token TEXT
	);
	CREATE TABLE IF NOT EXISTS stepperslife.tickets (
		id UUID PRIMARY KEY,
		purchase_id UUID,
		event_id UUID,
		code TEXT,
		qr_payload TEXT,
		seat_label TEXT DEFAULT '',
		status TEXT CHECK (status IN ('valid', 'used', 'cancelled')),
		scanned_at TIMESTAMPTZ,
		scanned_by UUID,
		check_in_method TEXT,
		UNIQUE (event_id, code)
	);
`

func setupPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/stepperslife?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	return ctx, pool
}

func insertValidTicket(t *testing.T, ctx context.Context, repo *crdb.Repository, eventID uuid.UUID, code string) domain.Ticket {
	t.Helper()
	ticket := domain.Ticket{
		ID:         uuid.New(),
		PurchaseID: uuid.New(),
		EventID:    eventID,
		Code:       code,
		QRPayload:  domain.QRPayload(eventID.String(), code),
		Status:     domain.TicketValid,
	}
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.InsertTickets(ctx, tx, []domain.Ticket{ticket})
	})
	if err != nil {
		t.Fatal(err)
	}
	return ticket
}

func TestRepository_MarkTicketUsed(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := crdb.NewRepository(pool)

	eventID := uuid.New()
	scanner := uuid.New()
	insertValidTicket(t, ctx, repo, eventID, "ABC123")

	used, err := repo.MarkTicketUsed(ctx, eventID, "ABC123", scanner, domain.CheckInQR, time.Now())
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if used.Status != domain.TicketUsed {
		t.Fatalf("status = %s, want used", used.Status)
	}
	if used.ScannedBy == nil || *used.ScannedBy != scanner {
		t.Fatal("scanned_by not recorded")
	}

	_, err = repo.MarkTicketUsed(ctx, eventID, "ABC123", scanner, domain.CheckInQR, time.Now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second scan err = %v, want ErrNotFound", err)
	}

	stored, err := repo.GetTicketByCode(ctx, eventID, "ABC123")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.TicketUsed {
		t.Fatalf("stored status = %s after re-scan", stored.Status)
	}
}

func TestRepository_MarkTicketUsed_Concurrent(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := crdb.NewRepository(pool)

	eventID := uuid.New()
	insertValidTicket(t, ctx, repo, eventID, "RACE01")

	const scanners = 4
	var wg sync.WaitGroup
	wins := make(chan bool, scanners)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MarkTicketUsed(ctx, eventID, "RACE01", uuid.New(), domain.CheckInQR, time.Now())
			wins <- err == nil
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestRepository_IncrementSoldGuard(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := crdb.NewRepository(pool)

	tt := domain.TicketType{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		Name:      "General Admission",
		Category:  domain.CategoryGeneral,
		Price:     decimal.RequireFromString("50"),
		Allocated: 10,
	}
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateTicketType(ctx, tx, tt)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.IncrementSold(ctx, tx, tt.ID, 8)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.IncrementSold(ctx, tx, tt.ID, 3)
	})
	if !errors.Is(err, domain.ErrSoldOut) {
		t.Fatalf("oversell err = %v, want ErrSoldOut", err)
	}

	stored, err := repo.GetTicketType(ctx, tt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Sold != 8 {
		t.Fatalf("sold = %d, want 8", stored.Sold)
	}
	if stored.Available() != 2 {
		t.Fatalf("available = %d, want 2", stored.Available())
	}
}

func TestRepository_InsertTicketsBatch(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := crdb.NewRepository(pool)

	eventID := uuid.New()
	purchaseID := uuid.New()
	var tickets []domain.Ticket
	for _, code := range []string{"BAT001", "BAT002", "BAT003", "BAT004"} {
		tickets = append(tickets, domain.Ticket{
			ID:         uuid.New(),
			PurchaseID: purchaseID,
			EventID:    eventID,
			Code:       code,
			QRPayload:  domain.QRPayload(eventID.String(), code),
			Status:     domain.TicketValid,
		})
	}

	// All rows go through one transaction; minting a multi-ticket purchase
	// must not trip the connection's single-statement limit.
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.InsertTickets(ctx, tx, tickets)
	})
	if err != nil {
		t.Fatalf("batch insert: %v", err)
	}

	for _, ticket := range tickets {
		stored, err := repo.GetTicketByCode(ctx, eventID, ticket.Code)
		if err != nil {
			t.Fatalf("%s not stored: %v", ticket.Code, err)
		}
		if stored.PurchaseID != purchaseID {
			t.Fatalf("%s purchase_id = %s", ticket.Code, stored.PurchaseID)
		}
	}
}

func TestRepository_IncrementTableSold(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := crdb.NewRepository(pool)

	tc := domain.TableConfiguration{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		Name:       "VIP Table 1",
		SeatCount:  8,
		Price:      decimal.RequireFromString("400"),
		Hidden:     true,
		ShareToken: "SHARETOKEN",
	}
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateTableConfiguration(ctx, tx, tc)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.IncrementTableSold(ctx, tx, tc.ID)
	})
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.IncrementTableSold(ctx, tx, tc.ID)
	})
	if !errors.Is(err, domain.ErrSoldOut) {
		t.Fatalf("second sale err = %v, want ErrSoldOut", err)
	}

	stored, err := repo.GetTableByShareToken(ctx, tc.EventID, "SHARETOKEN")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Sold != 1 {
		t.Fatalf("sold = %d, want 1", stored.Sold)
	}
}

func TestRepository_TransitionOffer(t *testing.T) {
	ctx, pool := setupPool(t)
	repo := crdb.NewRepository(pool)

	entry := domain.NewWaitingListEntry(uuid.New(), "buyer@example.com")
	if err := repo.CreateWaitingListEntry(ctx, entry); err != nil {
		t.Fatal(err)
	}
	if err := repo.OfferEntry(ctx, entry.ID, time.Now(), 15*time.Minute); err != nil {
		t.Fatal(err)
	}

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.TransitionOffer(ctx, tx, entry.ID, domain.OfferOffered, domain.OfferPurchased)
	})
	if err != nil {
		t.Fatal(err)
	}

	// A second consume attempt must miss: the entry left the offered state.
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.TransitionOffer(ctx, tx, entry.ID, domain.OfferOffered, domain.OfferPurchased)
	})
	if !errors.Is(err, domain.ErrNoValidOfferFound) {
		t.Fatalf("double consume err = %v, want ErrNoValidOfferFound", err)
	}
}
