package dedup

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Window is the interval during which a repeat fingerprint hit on the same
// route counts as a duplicate. 30 minutes = 1,800,000 ms exactly.
const Window = 30 * time.Minute

// ErrInvalidInput marks Check calls with a blank ip or user agent. Handlers
// map it to a 400 before any store mutation happens.
var ErrInvalidInput = errors.New("dedup: ip and user agent are required")

// Fingerprint derives the low-entropy requester identity used as the dedup
// key suffix. Not an authentication mechanism; it only has to be stable for
// the same requester across a 30-minute window.
func Fingerprint(ip, userAgent string) string {
	return strings.ToLower(strings.TrimSpace(ip)) + "::" + strings.ToLower(strings.TrimSpace(userAgent))
}

// Store answers whether a (route, requester) pair already produced a counted
// click inside the window, arming a fresh window when it hasn't. Expired
// records are swept by a self-rescheduled timer rather than an external
// cron: every fresh check re-arms the sweep one window out, and the timer is
// allowed to lapse once the table is empty.
//
// Two concurrent fresh checks for the same key can both observe
// absent/expired before either writes and both report fresh. Dedup is
// approximate; the redirect path never depends on it.
type Store struct {
	db     *sql.DB
	window time.Duration

	mu    sync.Mutex
	sweep *time.Timer

	now func() time.Time
}

func NewStore(db *sql.DB, window time.Duration) *Store {
	if window <= 0 {
		window = Window
	}
	return &Store{
		db:     db,
		window: window,
		now:    time.Now,
	}
}

// Check classifies one click. Duplicate means a record for the key exists
// with expires_at strictly in the future; a record expiring at exactly now
// is already stale and the click counts as fresh.
func (s *Store) Check(routeID, ip, userAgent string) (bool, error) {
	if strings.TrimSpace(ip) == "" || strings.TrimSpace(userAgent) == "" {
		return false, ErrInvalidInput
	}

	key := routeID + ":" + Fingerprint(ip, userAgent)
	nowMs := s.now().UnixMilli()

	var expiresAt int64
	err := s.db.QueryRow("SELECT expires_at FROM dedup_records WHERE dedup_key = ?", key).Scan(&expiresAt)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	if err == nil && expiresAt > nowMs {
		return true, nil
	}

	query := `
		INSERT INTO dedup_records (dedup_key, expires_at) VALUES (?, ?)
		ON CONFLICT(dedup_key) DO UPDATE SET expires_at = excluded.expires_at
	`
	if _, err := s.db.Exec(query, key, nowMs+s.window.Milliseconds()); err != nil {
		return false, err
	}

	s.rearmSweep()
	return false, nil
}

// rearmSweep cancels any pending sweep and schedules one a full window out.
// At most one timer is pending per store.
func (s *Store) rearmSweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweep != nil {
		s.sweep.Stop()
	}
	s.sweep = time.AfterFunc(s.window, s.runSweep)
}

// runSweep deletes every expired record, then either reschedules itself a
// window out (records remain) or lets the timer lapse (table empty, nothing
// to clean until the next fresh check re-arms it).
func (s *Store) runSweep() {
	nowMs := s.now().UnixMilli()

	res, err := s.db.Exec("DELETE FROM dedup_records WHERE expires_at <= ?", nowMs)
	if err != nil {
		log.Error().Err(err).Str("action", "dedup_sweep").Msg("expiry sweep failed")
		// Keep the timer alive so a transient failure doesn't strand records.
		s.reschedule(true)
		return
	}

	swept, _ := res.RowsAffected()

	// Count and reschedule under the same lock a fresh check's re-arm
	// takes. A check landing after an unlocked count could have its newly
	// armed timer cancelled here, stranding its record.
	s.mu.Lock()
	defer s.mu.Unlock()

	var remaining int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM dedup_records").Scan(&remaining); err != nil {
		log.Error().Err(err).Str("action", "dedup_sweep").Msg("remaining count failed")
		s.rescheduleLocked(true)
		return
	}

	log.Debug().Int64("swept", swept).Int64("remaining", remaining).
		Str("action", "dedup_sweep").Msg("dedup expiry sweep complete")

	s.rescheduleLocked(remaining > 0)
}

func (s *Store) reschedule(again bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rescheduleLocked(again)
}

// rescheduleLocked replaces or lapses the sweep timer. Caller holds mu.
func (s *Store) rescheduleLocked(again bool) {
	if s.sweep != nil {
		s.sweep.Stop()
	}
	if !again {
		s.sweep = nil
		return
	}
	s.sweep = time.AfterFunc(s.window, s.runSweep)
}

// Sweep runs one expiry pass immediately. The reconcile worker calls it as
// a safety net; request traffic never does.
func (s *Store) Sweep() {
	s.runSweep()
}

// SweepPending reports whether a sweep timer is currently armed.
func (s *Store) SweepPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep != nil
}

// Stop cancels any pending sweep. Used on shutdown.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweep != nil {
		s.sweep.Stop()
		s.sweep = nil
	}
}
