package analytics

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClickEvent is the write-only analytics fact emitted once per redirect.
// IsInvalid folds together the bot-signal classification and the dedup
// verdict; the consumer of the table is outside this service.
type ClickEvent struct {
	ID        string
	Timestamp int64 // unix ms
	Host      string
	Path      string
	RouteID   string
	HireID    string
	Country   string
	ASN       string
	BotBucket string
	Referrer  string
	IsInvalid bool
}

// Sink records click events. Implementations must be safe to call from a
// fire-and-forget goroutine and must swallow their own failures.
type Sink interface {
	Record(event ClickEvent)
}

// SQLSink writes click events to the edge database.
type SQLSink struct {
	db *sql.DB
}

func NewSQLSink(db *sql.DB) *SQLSink {
	return &SQLSink{db: db}
}

// Record is designed to be called in a goroutine; it takes the event by
// value to avoid request-context lifetime issues and never lets a failure
// escape.
func (s *SQLSink) Record(event ClickEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("action", "click_log").
				Msg("recovered from panic recording click")
		}
	}()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO click_events (
			id, timestamp, host, path, route_id, hire_id,
			country, asn, bot_bucket, referrer, is_invalid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		event.ID,
		event.Timestamp,
		event.Host,
		event.Path,
		event.RouteID,
		event.HireID,
		event.Country,
		event.ASN,
		event.BotBucket,
		event.Referrer,
		event.IsInvalid,
	)
	if err != nil {
		log.Error().Err(err).Str("route_id", event.RouteID).Str("action", "click_log").
			Msg("failed to record click event")
	}
}
