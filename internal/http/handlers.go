package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stepperslife/ticketing/internal/adapters/crdb"
	mongoadapter "github.com/stepperslife/ticketing/internal/adapters/mongo"
	"github.com/stepperslife/ticketing/internal/adapters/rabbit"
	"github.com/stepperslife/ticketing/internal/checkin"
	"github.com/stepperslife/ticketing/internal/checkout"
	"github.com/stepperslife/ticketing/internal/config"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/idempotency"
)

type Handlers struct {
	cfg          *config.Config
	repo         *crdb.Repository
	orchestrator *checkout.Orchestrator
	finalizer    *checkout.Finalizer
	validator    *checkin.Validator
	idemp        *idempotency.Idempotency
	rabbitPub    *rabbit.Publisher
	scanLogs     *mongoadapter.ScanLogRepository
	ledger       *mongoadapter.LedgerRepository
}

func NewHandlers(cfg *config.Config, repo *crdb.Repository, orchestrator *checkout.Orchestrator, finalizer *checkout.Finalizer, validator *checkin.Validator, idemp *idempotency.Idempotency, rabbitPub *rabbit.Publisher, scanLogs *mongoadapter.ScanLogRepository, ledger *mongoadapter.LedgerRepository) *Handlers {
	return &Handlers{
		cfg:          cfg,
		repo:         repo,
		orchestrator: orchestrator,
		finalizer:    finalizer,
		validator:    validator,
		idemp:        idemp,
		rabbitPub:    rabbitPub,
		scanLogs:     scanLogs,
		ledger:       ledger,
	}
}

// writeDomainError maps domain sentinels onto user-safe responses. Provider
// failures deliberately carry no detail.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedPaymentMethod),
		errors.Is(err, domain.ErrInvalidConfirmationToken):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotAuthenticated):
		http.Error(w, "not authenticated", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrTicketNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrSellerPaymentNotConfigured):
		http.Error(w, "seller has not configured a payment method", http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrNoValidOfferFound):
		http.Error(w, "no valid ticket offer found", http.StatusConflict)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrSoldOut):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrProviderSessionFailed):
		http.Error(w, "Failed to create checkout session. Please try again.", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handlers) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var params checkout.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.orchestrator.CreateCheckoutSession(r.Context(), params)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider    string `json:"provider"`
		ProviderRef string `json:"provider_ref"`
		Status      string `json:"status"`
		BuyerName   string `json:"buyer_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if provider == domain.ProviderZelle {
		if err := domain.ValidateZelleReference(req.ProviderRef); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	if req.Status != "SUCCEEDED" {
		payload, _ := json.Marshal(map[string]interface{}{"provider": provider, "provider_ref": req.ProviderRef})
		h.rabbitPub.Publish(r.Context(), "payment.failed", amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		})
		w.WriteHeader(http.StatusOK)
		return
	}

	result, err := h.finalizer.FinalizePurchase(r.Context(), checkout.FinalizeParams{
		Provider:    provider,
		ProviderRef: req.ProviderRef,
		BuyerName:   req.BuyerName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]interface{}{
		"purchase_id":  result.Purchase.ID,
		"status":       result.Purchase.Status,
		"ticket_count": len(result.Tickets),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) ScanTicket(w http.ResponseWriter, r *http.Request) {
	h.handleScan(w, r, domain.CheckInQR)
}

func (h *Handlers) ManualCheckIn(w http.ResponseWriter, r *http.Request) {
	h.handleScan(w, r, domain.CheckInManual)
}

func (h *Handlers) handleScan(w http.ResponseWriter, r *http.Request, method domain.CheckInMethod) {
	var req struct {
		TicketIdentifier string    `json:"ticket_identifier"`
		EventID          uuid.UUID `json:"event_id"`
		ScannerName      string    `json:"scanner_name"`
		DeviceInfo       string    `json:"device_info"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	scanReq := checkin.ScanRequest{
		Identifier:  req.TicketIdentifier,
		EventID:     req.EventID,
		ScannerID:   scannerFromContext(r.Context()),
		ScannerName: req.ScannerName,
		DeviceInfo:  req.DeviceInfo,
		Method:      method,
	}
	var result *checkin.ScanResult
	var err error
	if method == domain.CheckInManual {
		result, err = h.validator.ManualCheckIn(r.Context(), scanReq)
	} else {
		result, err = h.validator.ScanTicket(r.Context(), scanReq)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *Handlers) GetAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	report, err := checkin.Attendance(r.Context(), h.repo, eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Scan attempts come from the audit trail and include invalid and
	// repeated scans, so they can exceed scanned tickets.
	attempts, err := h.scanLogs.CountByEvent(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		*checkin.AttendanceReport
		ScanAttempts int64 `json:"scan_attempts"`
	}{report, attempts})
}

func (h *Handlers) GetSellerTransactions(w http.ResponseWriter, r *http.Request) {
	sellerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	txs, err := h.ledger.ListBySeller(r.Context(), sellerID, 50)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"transactions": txs})
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SellerID    uuid.UUID `json:"seller_id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Location    string    `json:"location"`
		StartsAt    time.Time `json:"starts_at"`
		EndsAt      time.Time `json:"ends_at"`
		Mode        string    `json:"mode"`
		Days        []struct {
			Label string    `json:"label"`
			Date  time.Time `json:"date"`
		} `json:"days"`
		TicketTypes []struct {
			Name      string          `json:"name"`
			Category  string          `json:"category"`
			Price     decimal.Decimal `json:"price"`
			Allocated int             `json:"allocated"`
		} `json:"ticket_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.SellerID == uuid.Nil {
		http.Error(w, "name and seller_id are required", http.StatusBadRequest)
		return
	}

	mode := domain.ModeTicketed
	if req.Mode == string(domain.ModeDoorPrice) {
		mode = domain.ModeDoorPrice
	}

	event := domain.Event{
		ID:          uuid.New(),
		SellerID:    req.SellerID,
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Mode:        mode,
		MultiDay:    len(req.Days) > 1,
	}
	for _, d := range req.Days {
		event.Days = append(event.Days, domain.EventDay{ID: uuid.New(), EventID: event.ID, Label: d.Label, Date: d.Date})
	}

	ticketTypeIDs := map[string]uuid.UUID{}
	err := h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		if err := h.repo.CreateEvent(r.Context(), tx, event); err != nil {
			return err
		}
		for _, tt := range req.TicketTypes {
			ticketType := domain.TicketType{
				ID:        uuid.New(),
				EventID:   event.ID,
				Name:      tt.Name,
				Category:  domain.TicketCategory(tt.Category),
				Price:     tt.Price,
				Allocated: tt.Allocated,
			}
			if err := h.repo.CreateTicketType(r.Context(), tx, ticketType); err != nil {
				return err
			}
			ticketTypeIDs[tt.Name] = ticketType.ID
		}
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]interface{}{
		"event_id":     event.ID,
		"ticket_types": ticketTypeIDs,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	event, err := h.repo.GetEvent(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

func (h *Handlers) CreateTable(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Name      string          `json:"name"`
		SeatCount int             `json:"seat_count"`
		Price     decimal.Decimal `json:"price"`
		Hidden    bool            `json:"hidden"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.SeatCount < 1 {
		http.Error(w, "name and a positive seat_count are required", http.StatusBadRequest)
		return
	}

	token, err := domain.NewShareToken()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	table := domain.TableConfiguration{
		ID:         uuid.New(),
		EventID:    eventID,
		Name:       req.Name,
		SeatCount:  req.SeatCount,
		Price:      req.Price,
		Hidden:     req.Hidden,
		ShareToken: token,
	}
	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		return h.repo.CreateTableConfiguration(r.Context(), tx, table)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"table_id": table.ID, "share_token": table.ShareToken})
}

// GetTableByToken resolves a share link. Hidden tables have no listing
// endpoint, so the token is the only way in.
func (h *Handlers) GetTableByToken(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	table, err := h.repo.GetTableByShareToken(r.Context(), eventID, chi.URLParam(r, "token"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(table)
}

func (h *Handlers) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	purchase, err := h.repo.GetPurchase(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(purchase)
}

func (h *Handlers) JoinWaitingList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID    uuid.UUID `json:"event_id"`
		BuyerEmail string    `json:"buyer_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry := domain.NewWaitingListEntry(req.EventID, req.BuyerEmail)
	if err := h.repo.CreateWaitingListEntry(r.Context(), entry); err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"reservation_id": entry.ID, "status": entry.Status})
}

// OfferReservation moves a waiting entry into its offer window. Called by
// the organizer dashboard when inventory frees up.
func (h *Handlers) OfferReservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.OfferEntry(r.Context(), id, time.Now(), h.cfg.OfferTTL); err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"reservation_id": id, "status": domain.OfferOffered})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
