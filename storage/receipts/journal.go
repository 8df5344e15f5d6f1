// Package receipts keeps a queryable journal of committed ledger events in
// sqlite or postgres. The ledger itself never reads it.
package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hashmelody/core/events"
	"hashmelody/crypto"
)

// ErrPathRequired is returned when the journal path is missing.
var ErrPathRequired = errors.New("receipts journal path must be configured")

// Purchase is one completed purchase. Amounts are decimal strings because
// sqlite integers are signed.
type Purchase struct {
	ReceiptID      string `gorm:"primaryKey;size:36"`
	Token          string `gorm:"size:64;index"`
	Buyer          string `gorm:"size:64;index"`
	Amount         string `gorm:"not null"`
	Price          string `gorm:"not null"`
	TotalCost      string `gorm:"not null"`
	PlatformFee    string `gorm:"not null"`
	VaultAmount    string `gorm:"not null"`
	Supply         string `gorm:"not null"`
	TotalCollected string `gorm:"not null"`
	Timestamp      int64  `gorm:"index"`
	RecordedAt     time.Time
}

// Event is the raw form of every committed event.
type Event struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Type       string `gorm:"size:64;index"`
	Attributes string
	RecordedAt time.Time
}

// AutoMigrate performs all schema migrations for the journal.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Purchase{}, &Event{})
}

// Journal persists events it receives as an events.Emitter.
type Journal struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open initialises the journal at path, creating the schema when needed. A
// postgres:// or postgresql:// URL selects postgres; anything else is treated
// as a sqlite file path.
func Open(path string, log *slog.Logger) (*Journal, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := gorm.Open(dialector(trimmed), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Journal{db: db, logger: log, now: time.Now}, nil
}

func dialector(dsn string) gorm.Dialector {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// Close releases database resources.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit implements events.Emitter. Write failures are logged; the ledger has
// already committed by the time events arrive.
func (j *Journal) Emit(evt events.Event) {
	if j == nil || evt == nil {
		return
	}
	if err := j.Record(context.Background(), evt); err != nil {
		j.logger.Error("receipt journal write failed",
			slog.String("type", evt.EventType()),
			slog.Any("error", err))
	}
}

// Record stores evt and, for purchases, its receipt row.
func (j *Journal) Record(ctx context.Context, evt events.Event) error {
	payload := events.Payload(evt)
	if payload == nil {
		return nil
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	recorded := j.now().UTC()
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&Event{Type: payload.Type, Attributes: string(attrs), RecordedAt: recorded}).Error; err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if payload.Type != events.TypeTokenPurchased {
			return nil
		}
		a := payload.Attributes
		var ts int64
		if _, err := fmt.Sscan(a["timestamp"], &ts); err != nil {
			return fmt.Errorf("purchase timestamp: %w", err)
		}
		row := Purchase{
			ReceiptID:      a["receiptId"],
			Token:          a["token"],
			Buyer:          a["buyer"],
			Amount:         a["amount"],
			Price:          a["price"],
			TotalCost:      a["totalCost"],
			PlatformFee:    a["platformFee"],
			VaultAmount:    a["vaultAmount"],
			Supply:         a["supply"],
			TotalCollected: a["totalCollected"],
			Timestamp:      ts,
			RecordedAt:     recorded,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		return nil
	})
}

// Purchases returns the most recent purchases of token, newest first.
func (j *Journal) Purchases(ctx context.Context, token [20]byte, limit int) ([]Purchase, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []Purchase
	err := j.db.WithContext(ctx).
		Where("token = ?", crypto.FormatToken(token)).
		Order("timestamp DESC").Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	return rows, nil
}

// Receipt loads a purchase by receipt id.
func (j *Journal) Receipt(ctx context.Context, id string) (*Purchase, bool, error) {
	var row Purchase
	err := j.db.WithContext(ctx).Where("receipt_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query receipt: %w", err)
	}
	return &row, true, nil
}

// CountEvents returns how many events of eventType were journaled. An empty
// type counts everything.
func (j *Journal) CountEvents(ctx context.Context, eventType string) (int64, error) {
	var count int64
	q := j.db.WithContext(ctx).Model(&Event{})
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
