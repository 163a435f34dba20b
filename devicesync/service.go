package devicesync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/gymkit/models"
	"github.com/cppla/gymkit/zkproto"
)

// Transport is the device call surface the sync run needs. zkproto.Client
// satisfies it; tests substitute fakes.
type Transport interface {
	FetchUsers() ([]zkproto.Record, error)
	FetchLogs(retries int) ([]zkproto.Record, error)
	ClearLogs() error
	GetTime() (time.Time, error)
	SetTime(time.Time) error
	Close() error
}

// Dialer opens a transport to addr.
type Dialer func(addr string, opts zkproto.Options) (Transport, error)

// ErrSyncInProgress is returned when the device is already being synced.
var ErrSyncInProgress = errors.New("a sync for this device is already running")

// Options tunes one Service instance.
type Options struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	FetchRetries int
	LockTTL      time.Duration
}

func (o *Options) fill() {
	if o.DialTimeout == 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.FetchRetries == 0 {
		o.FetchRetries = 3
	}
	if o.LockTTL == 0 {
		o.LockTTL = 2 * time.Minute
	}
}

// Service orchestrates sync runs. Two runs against the same device are
// serialized: an in-process mutex per device plus a best-effort Redis lock
// for multi-instance deployments.
type Service struct {
	db    *gorm.DB
	rdb   *redis.Client
	dial  Dialer
	log   *zap.SugaredLogger
	opts  Options
	locks sync.Map // device id -> *deviceLock
}

type deviceLock struct{ mu sync.Mutex }

// NewService builds a Service. rdb and log may be nil.
func NewService(db *gorm.DB, rdb *redis.Client, log *zap.SugaredLogger, opts Options) *Service {
	opts.fill()
	svc := &Service{db: db, rdb: rdb, log: log, opts: opts}
	if svc.dial == nil {
		svc.dial = func(addr string, o zkproto.Options) (Transport, error) {
			return zkproto.Dial(addr, o)
		}
	}
	return svc
}

// SetDialer overrides the transport dialer. Test hook.
func (s *Service) SetDialer(d Dialer) { s.dial = d }

// RunOptions controls one sync invocation.
type RunOptions struct {
	FullSync  bool
	StartDate *time.Time
	EndDate   *time.Time
}

// LogLine is one classified punch in the sync report.
type LogLine struct {
	DeviceUserID string    `json:"deviceUserId"`
	EventType    string    `json:"eventType"`
	Timestamp    time.Time `json:"timestamp"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Member       string    `json:"member"`
}

// DateRange is the effective punch window of a run.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Summary is the run's bookkeeping block.
type Summary struct {
	TotalRecords   int          `json:"totalRecords"`
	CheckInsCount  int          `json:"checkInsCount"`
	CheckOutsCount int          `json:"checkOutsCount"`
	SyncedCount    int          `json:"syncedCount"`
	ErrorCount     int          `json:"errorCount"`
	DeletedCount   int          `json:"deletedCount"`
	LastSyncAt     time.Time    `json:"lastSyncAt"`
	PreviousSyncAt *time.Time   `json:"previousSyncAt"`
	DateRange      DateRange    `json:"dateRange"`
	IsFullSync     bool         `json:"isFullSync"`
	Skipped        SkipCounters `json:"skipped"`
}

// RunResult is the sync response. Partial results with explicit error and
// skip counts, never all-or-nothing.
type RunResult struct {
	RunID     string    `json:"runId"`
	Total     int       `json:"total"`
	CheckIns  int       `json:"checkIns"`
	CheckOuts int       `json:"checkOuts"`
	Synced    int       `json:"synced"`
	Errors    int       `json:"errors"`
	Deleted   int       `json:"deleted"`
	Logs      []LogLine `json:"logs"`
	Summary   Summary   `json:"summary"`
}

// Run executes one sync of device against its tenant's attendance table.
// Transport failures abort the run; per-punch and per-session problems are
// absorbed into the counters.
func (s *Service) Run(ctx context.Context, device *models.Device, opt RunOptions) (*RunResult, error) {
	unlock, err := s.lockDevice(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	runID := uuid.NewString()
	now := time.Now().UTC()
	previousSync := device.LastSyncAt

	addr := net.JoinHostPort(device.IP, strconv.Itoa(device.Port))
	transport, err := s.dial(addr, zkproto.Options{
		DialTimeout: s.opts.DialTimeout,
		ReadTimeout: s.opts.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	// Release the physical device slot on every exit path. A leaked
	// connection blocks all later syncs against this clock.
	defer transport.Close()

	records, err := transport.FetchLogs(s.opts.FetchRetries)
	if err != nil {
		return nil, err
	}

	mappings, err := s.loadMappings(device)
	if err != nil {
		return nil, fmt.Errorf("load device user mappings: %w", err)
	}

	window := buildWindow(device, opt)
	normalizer := &Normalizer{Mappings: mappings, Window: window}
	punches := make([]RawPunch, 0, len(records))
	for _, rec := range records {
		if p, ok := normalizer.Normalize(rec); ok {
			punches = append(punches, p)
		}
	}

	sessions := Aggregate(punches)

	writer := &Writer{DB: s.db, TenantID: device.TenantID, SerialNumber: device.SerialNumber}
	var stats WriteStats

	if opt.FullSync {
		wiped, err := writer.WipeTenant()
		if err != nil {
			return nil, fmt.Errorf("full resync wipe: %w", err)
		}
		stats.Deleted += int(wiped)
	}

	var logs []LogLine
	checkIns, checkOuts := 0, 0
	for _, sess := range sessions {
		for _, p := range sess.Punches {
			switch p.Kind {
			case KindCheckIn:
				checkIns++
			case KindCheckOut:
				checkOuts++
			}
			logs = append(logs, LogLine{
				DeviceUserID: p.DeviceUserID,
				EventType:    p.Kind.String(),
				Timestamp:    p.Timestamp,
				Date:         p.Timestamp.UTC().Format("2006-01-02"),
				Time:         p.Timestamp.UTC().Format("15:04:05"),
				Member:       p.MemberName,
			})
		}

		outcome, deleted, err := writer.Write(sess)
		stats.Deleted += deleted
		if err != nil {
			stats.Errors++
			if s.log != nil {
				s.log.Warnw("session write failed",
					"run_id", runID, "member_id", sess.MemberID, "date", sess.Date, "err", err)
			}
			continue
		}
		switch outcome {
		case OutcomeCreated:
			stats.Created++
		case OutcomeUpdated:
			stats.Updated++
		}
	}

	closed, err := CloseStaleOpenSessions(s.db, device.TenantID, now)
	if err != nil && s.log != nil {
		s.log.Warnw("incomplete session closer failed", "run_id", runID, "err", err)
	}

	device.LastSyncAt = &now
	if err := s.db.Model(device).Update("last_sync_at", now).Error; err != nil {
		return nil, fmt.Errorf("advance last sync time: %w", err)
	}

	if s.log != nil {
		s.log.Infow("device sync finished",
			"run_id", runID, "device_id", device.ID, "tenant_id", device.TenantID,
			"total", normalizer.Counters.Total, "sessions", len(sessions),
			"created", stats.Created, "updated", stats.Updated,
			"deleted", stats.Deleted, "errors", stats.Errors,
			"closed", closed, "full", opt.FullSync)
	}

	synced := stats.Created + stats.Updated
	return &RunResult{
		RunID:     runID,
		Total:     normalizer.Counters.Total,
		CheckIns:  checkIns,
		CheckOuts: checkOuts,
		Synced:    synced,
		Errors:    stats.Errors,
		Deleted:   stats.Deleted,
		Logs:      logs,
		Summary: Summary{
			TotalRecords:   normalizer.Counters.Total,
			CheckInsCount:  checkIns,
			CheckOutsCount: checkOuts,
			SyncedCount:    synced,
			ErrorCount:     stats.Errors,
			DeletedCount:   stats.Deleted,
			LastSyncAt:     now,
			PreviousSyncAt: previousSync,
			DateRange:      effectiveRange(window, punches, now),
			IsFullSync:     opt.FullSync,
			Skipped:        normalizer.Counters,
		},
	}, nil
}

// buildWindow derives the punch window: incremental runs consider only
// punches strictly after the device's last sync; full runs take everything,
// optionally bounded by an explicit start date.
func buildWindow(device *models.Device, opt RunOptions) Window {
	w := Window{End: opt.EndDate}
	if opt.FullSync {
		if opt.StartDate != nil {
			// explicit bound is inclusive of the start day
			start := dateOnly(*opt.StartDate).Add(-time.Nanosecond)
			w.Start = &start
		}
		return w
	}
	w.Start = device.LastSyncAt
	if opt.StartDate != nil && (w.Start == nil || opt.StartDate.After(*w.Start)) {
		start := dateOnly(*opt.StartDate).Add(-time.Nanosecond)
		w.Start = &start
	}
	return w
}

func effectiveRange(w Window, punches []RawPunch, now time.Time) DateRange {
	const day = "2006-01-02"
	r := DateRange{End: now.Format(day)}
	switch {
	case w.Start != nil:
		r.Start = w.Start.UTC().Format(day)
	case len(punches) > 0:
		min := punches[0].Timestamp
		for _, p := range punches[1:] {
			if p.Timestamp.Before(min) {
				min = p.Timestamp
			}
		}
		r.Start = min.UTC().Format(day)
	}
	if w.End != nil {
		r.End = w.End.UTC().Format(day)
	}
	return r
}

// lockDevice serializes syncs per device. The in-process mutex covers a
// single instance; the Redis lock is best effort across instances and is
// skipped when Redis is unavailable, matching how caching degrades.
func (s *Service) lockDevice(ctx context.Context, deviceID uint) (func(), error) {
	v, _ := s.locks.LoadOrStore(deviceID, &deviceLock{})
	dl := v.(*deviceLock)
	if !dl.mu.TryLock() {
		return nil, ErrSyncInProgress
	}

	release := func() { dl.mu.Unlock() }

	if s.rdb == nil {
		return release, nil
	}
	key := "gymkit:sync:lock:device:" + strconv.FormatUint(uint64(deviceID), 10)
	ok, err := s.rdb.SetNX(ctx, key, time.Now().Unix(), s.opts.LockTTL).Result()
	if err != nil {
		if s.log != nil {
			s.log.Debugw("redis sync lock unavailable", "device_id", deviceID, "err", err)
		}
		return release, nil
	}
	if !ok {
		dl.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	return func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.rdb.Del(delCtx, key).Err()
		dl.mu.Unlock()
	}, nil
}

// loadMappings returns the device's active mappings keyed by device-local
// user id, with member names resolved for the sync report.
func (s *Service) loadMappings(device *models.Device) (map[string]MappedMember, error) {
	var rows []models.DeviceUserMapping
	err := s.db.Preload("Member").
		Where("device_id = ? AND is_active = ?", device.ID, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]MappedMember, len(rows))
	for _, row := range rows {
		m := MappedMember{MemberID: row.MemberID}
		if row.Member != nil {
			m.Name = row.Member.FullName
		}
		out[row.DeviceUserID] = m
	}
	return out, nil
}
