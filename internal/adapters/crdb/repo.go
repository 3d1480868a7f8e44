package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) CreateEvent(ctx context.Context, tx pgx.Tx, event domain.Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO events (id, seller_id, name, description, location, starts_at, ends_at, mode, multi_day, cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
	`, event.ID, event.SellerID, event.Name, event.Description, event.Location, event.StartsAt, event.EndsAt, event.Mode, event.MultiDay)
	if err != nil {
		return err
	}
	for _, day := range event.Days {
		_, err := tx.Exec(ctx, `
			INSERT INTO event_days (id, event_id, label, date)
			VALUES ($1, $2, $3, $4)
		`, day.ID, event.ID, day.Label, day.Date)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	var event domain.Event
	err := r.pool.QueryRow(ctx, `
		SELECT id, seller_id, name, description, location, starts_at, ends_at, mode, multi_day, cancelled
		FROM events WHERE id = $1
	`, eventID).Scan(&event.ID, &event.SellerID, &event.Name, &event.Description, &event.Location,
		&event.StartsAt, &event.EndsAt, &event.Mode, &event.MultiDay, &event.Cancelled)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, label, date FROM event_days WHERE event_id = $1 ORDER BY date
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var day domain.EventDay
		if err := rows.Scan(&day.ID, &day.EventID, &day.Label, &day.Date); err != nil {
			return nil, err
		}
		event.Days = append(event.Days, day)
	}
	return &event, nil
}

// CancelEvent is a soft delete.
func (r *Repository) CancelEvent(ctx context.Context, eventID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE events SET cancelled = true WHERE id = $1 AND cancelled = false
	`, eventID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateTicketType(ctx context.Context, tx pgx.Tx, tt domain.TicketType) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ticket_types (id, event_id, event_day_id, name, category, price, early_bird_price, early_bird_until, allocated, sold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
	`, tt.ID, tt.EventID, tt.EventDayID, tt.Name, tt.Category, tt.Price, tt.EarlyBirdPrice, tt.EarlyBirdUntil, tt.Allocated)
	return err
}

func (r *Repository) GetTicketType(ctx context.Context, id uuid.UUID) (*domain.TicketType, error) {
	var tt domain.TicketType
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, event_day_id, name, category, price, early_bird_price, early_bird_until, allocated, sold
		FROM ticket_types WHERE id = $1
	`, id).Scan(&tt.ID, &tt.EventID, &tt.EventDayID, &tt.Name, &tt.Category, &tt.Price,
		&tt.EarlyBirdPrice, &tt.EarlyBirdUntil, &tt.Allocated, &tt.Sold)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// IncrementSold commits inventory. The predicate keeps sold <= allocated.
func (r *Repository) IncrementSold(ctx context.Context, tx pgx.Tx, ticketTypeID uuid.UUID, quantity int) error {
	result, err := tx.Exec(ctx, `
		UPDATE ticket_types SET sold = sold + $2
		WHERE id = $1 AND sold + $2 <= allocated
	`, ticketTypeID, quantity)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSoldOut
	}
	return nil
}

func (r *Repository) CreateTableConfiguration(ctx context.Context, tx pgx.Tx, tc domain.TableConfiguration) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO table_configurations (id, event_id, name, seat_count, price, sold, hidden, share_token)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`, tc.ID, tc.EventID, tc.Name, tc.SeatCount, tc.Price, tc.Hidden, tc.ShareToken)
	return err
}

// IncrementTableSold marks one table unit sold. A configuration row is a
// single sellable table, so the guard rejects a second sale.
func (r *Repository) IncrementTableSold(ctx context.Context, tx pgx.Tx, tableID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE table_configurations SET sold = sold + 1
		WHERE id = $1 AND sold = 0
	`, tableID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSoldOut
	}
	return nil
}

// GetTableByShareToken is the only lookup path for hidden tables.
func (r *Repository) GetTableByShareToken(ctx context.Context, eventID uuid.UUID, token string) (*domain.TableConfiguration, error) {
	var tc domain.TableConfiguration
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, name, seat_count, price, sold, hidden, share_token
		FROM table_configurations WHERE event_id = $1 AND share_token = $2
	`, eventID, token).Scan(&tc.ID, &tc.EventID, &tc.Name, &tc.SeatCount, &tc.Price, &tc.Sold, &tc.Hidden, &tc.ShareToken)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

func (r *Repository) UpsertSellerPaymentProfile(ctx context.Context, p domain.SellerPaymentProfile) error {
	_, err := r.pool.Exec(ctx, `
		UPSERT INTO seller_payment_profiles (seller_id, provider, square_location_id, square_merchant_id, stripe_account_id, paypal_email, zelle_email, zelle_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.SellerID, p.Provider, p.SquareLocationID, p.SquareMerchantID, p.StripeAccountID, p.PayPalEmail, p.ZelleEmail, p.ZellePhone)
	return err
}

func (r *Repository) GetSellerPaymentProfile(ctx context.Context, sellerID uuid.UUID) (*domain.SellerPaymentProfile, error) {
	var p domain.SellerPaymentProfile
	err := r.pool.QueryRow(ctx, `
		SELECT seller_id, provider, square_location_id, square_merchant_id, stripe_account_id, paypal_email, zelle_email, zelle_phone
		FROM seller_payment_profiles WHERE seller_id = $1
	`, sellerID).Scan(&p.SellerID, &p.Provider, &p.SquareLocationID, &p.SquareMerchantID,
		&p.StripeAccountID, &p.PayPalEmail, &p.ZelleEmail, &p.ZellePhone)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrSellerPaymentNotConfigured
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreateWaitingListEntry(ctx context.Context, entry domain.WaitingListEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO waiting_list (id, event_id, buyer_email, status, offered_at, offer_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.EventID, entry.BuyerEmail, entry.Status, entry.OfferedAt, entry.OfferExpiresAt)
	return err
}

func (r *Repository) GetWaitingListEntry(ctx context.Context, id uuid.UUID) (*domain.WaitingListEntry, error) {
	var entry domain.WaitingListEntry
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, buyer_email, status, offered_at, offer_expires_at
		FROM waiting_list WHERE id = $1
	`, id).Scan(&entry.ID, &entry.EventID, &entry.BuyerEmail, &entry.Status, &entry.OfferedAt, &entry.OfferExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) OfferEntry(ctx context.Context, id uuid.UUID, now time.Time, window time.Duration) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE waiting_list SET status = $2, offered_at = $3, offer_expires_at = $4
		WHERE id = $1 AND status = $5
	`, id, domain.OfferOffered, now, now.Add(window), domain.OfferWaiting)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// TransitionOffer moves a waiting-list entry between states conditionally;
// a zero row count means the entry was not in the expected prior state.
func (r *Repository) TransitionOffer(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.OfferStatus) error {
	result, err := tx.Exec(ctx, `
		UPDATE waiting_list SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNoValidOfferFound
	}
	return nil
}

func (r *Repository) GetExpiredOffers(ctx context.Context, now time.Time) ([]domain.WaitingListEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, buyer_email, status, offered_at, offer_expires_at
		FROM waiting_list WHERE status = $1 AND offer_expires_at <= $2
	`, domain.OfferOffered, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.WaitingListEntry
	for rows.Next() {
		var entry domain.WaitingListEntry
		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.BuyerEmail, &entry.Status, &entry.OfferedAt, &entry.OfferExpiresAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *Repository) ExpireOffer(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE waiting_list SET status = $2 WHERE id = $1 AND status = $3
	`, id, domain.OfferExpired, domain.OfferOffered)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) InsertPurchase(ctx context.Context, tx pgx.Tx, purchase domain.Purchase) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO purchases (id, event_id, buyer_email, buyer_name, type, item_id, quantity, total_amount, provider, provider_ref, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, purchase.ID, purchase.EventID, purchase.BuyerEmail, purchase.BuyerName, purchase.Type, purchase.ItemID,
		purchase.Quantity, purchase.TotalAmount, purchase.Provider, purchase.ProviderRef, purchase.Status, purchase.CreatedAt)
	return err
}

func (r *Repository) GetPurchase(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	var p domain.Purchase
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, buyer_email, buyer_name, type, item_id, quantity, total_amount, provider, provider_ref, status, refunded_at, created_at
		FROM purchases WHERE id = $1
	`, id).Scan(&p.ID, &p.EventID, &p.BuyerEmail, &p.BuyerName, &p.Type, &p.ItemID, &p.Quantity,
		&p.TotalAmount, &p.Provider, &p.ProviderRef, &p.Status, &p.RefundedAt, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertTickets mints the whole batch on the purchase transaction. A single
// pgx.Batch keeps it to one round trip; the transaction's connection cannot
// run statements concurrently.
func (r *Repository) InsertTickets(ctx context.Context, tx pgx.Tx, tickets []domain.Ticket) error {
	batch := &pgx.Batch{}
	for _, ticket := range tickets {
		batch.Queue(`
			INSERT INTO tickets (id, purchase_id, event_id, code, qr_payload, seat_label, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, ticket.ID, ticket.PurchaseID, ticket.EventID, ticket.Code, ticket.QRPayload, ticket.SeatLabel, ticket.Status)
	}
	results := tx.SendBatch(ctx, batch)
	for range tickets {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	return results.Close()
}

func (r *Repository) GetTicketByCode(ctx context.Context, eventID uuid.UUID, code string) (*domain.Ticket, error) {
	var t domain.Ticket
	err := r.pool.QueryRow(ctx, `
		SELECT id, purchase_id, event_id, code, qr_payload, seat_label, status, scanned_at, scanned_by, check_in_method
		FROM tickets WHERE event_id = $1 AND code = $2
	`, eventID, code).Scan(&t.ID, &t.PurchaseID, &t.EventID, &t.Code, &t.QRPayload, &t.SeatLabel,
		&t.Status, &t.ScannedAt, &t.ScannedBy, &t.Method)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTicketUsed is the exactly-once transition valid -> used, expressed as a
// single conditional update so concurrent scanners cannot both win.
func (r *Repository) MarkTicketUsed(ctx context.Context, eventID uuid.UUID, code string, scannerID uuid.UUID, method domain.CheckInMethod, now time.Time) (*domain.Ticket, error) {
	var t domain.Ticket
	err := r.pool.QueryRow(ctx, `
		UPDATE tickets SET status = $3, scanned_at = $4, scanned_by = $5, check_in_method = $6
		WHERE event_id = $1 AND code = $2 AND status = $7
		RETURNING id, purchase_id, event_id, code, qr_payload, seat_label, status, scanned_at, scanned_by, check_in_method
	`, eventID, code, domain.TicketUsed, now, scannerID, method, domain.TicketValid).
		Scan(&t.ID, &t.PurchaseID, &t.EventID, &t.Code, &t.QRPayload, &t.SeatLabel,
			&t.Status, &t.ScannedAt, &t.ScannedBy, &t.Method)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type AttendanceCounts struct {
	Total   int
	Scanned int
}

func (r *Repository) CountAttendance(ctx context.Context, eventID uuid.UUID) (AttendanceCounts, error) {
	var counts AttendanceCounts
	err := r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = $2)
		FROM tickets WHERE event_id = $1
	`, eventID, domain.TicketUsed).Scan(&counts.Total, &counts.Scanned)
	return counts, err
}

type TableAttendance struct {
	SeatLabel string
	Total     int
	Scanned   int
}

func (r *Repository) TableAttendance(ctx context.Context, eventID uuid.UUID) ([]TableAttendance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seat_label, count(*), count(*) FILTER (WHERE status = $2)
		FROM tickets WHERE event_id = $1 AND seat_label != ''
		GROUP BY seat_label ORDER BY seat_label
	`, eventID, domain.TicketUsed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TableAttendance
	for rows.Next() {
		var row TableAttendance
		if err := rows.Scan(&row.SeatLabel, &row.Total, &row.Scanned); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, nil
}
