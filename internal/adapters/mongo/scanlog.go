package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stepperslife/ticketing/internal/domain"
	"github.com/stepperslife/ticketing/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ScanLogRepository appends one document per scan attempt. Documents are
// never updated after insert; this collection is the audit ground truth.
type ScanLogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewScanLogRepository(db *mongo.Database, logger observability.Logger) *ScanLogRepository {
	return &ScanLogRepository{
		coll:   db.Collection("scan_logs"),
		logger: logger,
	}
}

type scanLogDoc struct {
	ID          uuid.UUID `bson:"_id"`
	EventID     uuid.UUID `bson:"event_id"`
	TicketCode  string    `bson:"ticket_code"`
	Result      string    `bson:"result"`
	Method      string    `bson:"method"`
	ScannerID   uuid.UUID `bson:"scanner_id"`
	ScannerName string    `bson:"scanner_name"`
	DeviceInfo  string    `bson:"device_info"`
	ScannedAt   time.Time `bson:"scanned_at"`
}

func (s *ScanLogRepository) Append(ctx context.Context, log domain.ScanLog) error {
	doc := scanLogDoc{
		ID:          log.ID,
		EventID:     log.EventID,
		TicketCode:  log.TicketCode,
		Result:      string(log.Result),
		Method:      string(log.Method),
		ScannerID:   log.ScannerID,
		ScannerName: log.ScannerName,
		DeviceInfo:  log.DeviceInfo,
		ScannedAt:   log.ScannedAt,
	}
	_, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		s.logger.Error("failed to append scan log", err)
		return err
	}
	return nil
}

func (s *ScanLogRepository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"event_id": eventID})
}
