package integration

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoRefresh is returned when a company has no refresh progress record
var ErrNoRefresh = errors.New("integration: no catalog refresh for company")

// RefreshStatus is the lifecycle state of a catalog refresh job
type RefreshStatus string

const (
	RefreshStarted    RefreshStatus = "started"
	RefreshProcessing RefreshStatus = "processing"
	RefreshCompleted  RefreshStatus = "completed"
	RefreshCancelled  RefreshStatus = "cancelled"
	RefreshError      RefreshStatus = "error"
)

// Retention of progress records
const (
	// MaxProgressMessages bounds the message log, oldest dropped first
	MaxProgressMessages = 50
	// RunningProgressTTL keeps the record of a running job
	RunningProgressTTL = 2 * time.Hour
	// FinishedProgressTTL keeps the record of a finished job for pollers
	FinishedProgressTTL = 5 * time.Minute
)

// Message levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// RefreshStats counts mirror changes made by a refresh
type RefreshStats struct {
	Added       int `json:"added"`
	Updated     int `json:"updated"`
	Deleted     int `json:"deleted"`
	Errors      int `json:"errors"`
	TotalRemote int `json:"total_moloni"`
}

// Add accumulates another set of counts
func (s *RefreshStats) Add(other RefreshStats) {
	s.Added += other.Added
	s.Updated += other.Updated
	s.Deleted += other.Deleted
	s.Errors += other.Errors
	s.TotalRemote += other.TotalRemote
}

// ProgressMessage is one entry of the refresh log
type ProgressMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
}

// CategoryCursor locates the category being refreshed
type CategoryCursor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// RefreshProgress is the status record pollers read while a refresh runs
type RefreshProgress struct {
	Status          RefreshStatus     `json:"status"`
	Progress        int               `json:"progress"`
	Message         string            `json:"message"`
	TotalCategories int               `json:"total_categories"`
	CurrentCategory *CategoryCursor   `json:"current_category,omitempty"`
	CurrentBatch    int               `json:"current_batch"`
	TotalBatches    int               `json:"total_batches"`
	Stats           RefreshStats      `json:"stats"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	LastUpdate      time.Time         `json:"last_update"`
	UserID          string            `json:"user_id,omitempty"`
	ForceDelete     bool              `json:"force_delete"`
	Messages        []ProgressMessage `json:"messages"`
}

// NewRefreshProgress creates the record of a job about to start
func NewRefreshProgress(userID string, forceDelete bool) *RefreshProgress {
	now := time.Now()
	return &RefreshProgress{
		Status:      RefreshStarted,
		StartTime:   now,
		LastUpdate:  now,
		UserID:      userID,
		ForceDelete: forceDelete,
		Messages:    []ProgressMessage{},
	}
}

// Running reports whether the job has not reached a final state
func (p *RefreshProgress) Running() bool {
	return p.Status == RefreshStarted || p.Status == RefreshProcessing
}

// ShouldContinue reports whether the job may process its next unit of work
func (p *RefreshProgress) ShouldContinue() bool {
	return p.Status != RefreshCancelled && p.Status != RefreshError
}

// TTL is how long the record is retained in its current state
func (p *RefreshProgress) TTL() time.Duration {
	if p.Running() {
		return RunningProgressTTL
	}
	return FinishedProgressTTL
}

// AddMessage appends to the log, keeping only the most recent entries
func (p *RefreshProgress) AddMessage(level, message string) {
	p.Messages = append(p.Messages, ProgressMessage{Timestamp: time.Now(), Message: message, Level: level})
	if over := len(p.Messages) - MaxProgressMessages; over > 0 {
		p.Messages = append([]ProgressMessage(nil), p.Messages[over:]...)
	}
}

// CategoryProgress maps the category position onto the 0..90 range
func CategoryProgress(index, total int) int {
	if total <= 0 {
		return 0
	}
	return index * 90 / total
}

// Cancel flips a running job to cancelled
func (p *RefreshProgress) Cancel() bool {
	if !p.Running() {
		return false
	}
	p.Status = RefreshCancelled
	p.Message = "Sync cancelled by user"
	return true
}

// Fail records a fatal job error
func (p *RefreshProgress) Fail(err error) {
	p.Status = RefreshError
	p.Message = fmt.Sprintf("Sync error: %v", err)
	p.AddMessage(LevelError, p.Message)
}

// Complete closes the job with its final counts
func (p *RefreshProgress) Complete() {
	now := time.Now()
	p.Status = RefreshCompleted
	p.Progress = 100
	p.EndTime = &now
	p.Message = fmt.Sprintf("Sync completed: %d added, %d updated, %d removed",
		p.Stats.Added, p.Stats.Updated, p.Stats.Deleted)
}

// ProgressStore keeps one refresh progress record per company
type ProgressStore interface {
	// Get returns the record, or ErrNoRefresh
	Get(ctx context.Context, companyID string) (*RefreshProgress, error)

	// TryStart stores p unless a running record exists and reports whether it did
	TryStart(ctx context.Context, companyID string, p *RefreshProgress) (bool, error)

	// Update applies fn to the stored record atomically and returns the result.
	// The record is retained for its TTL.
	Update(ctx context.Context, companyID string, fn func(p *RefreshProgress)) (*RefreshProgress, error)
}

// SyncLock is a per-key mutual exclusion flag with expiry
type SyncLock interface {
	// Acquire sets the flag unless it is already held. On success it returns
	// the owner token that Release needs.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release clears the flag if token still owns it. A flag that expired and
	// was taken by another run is left alone.
	Release(ctx context.Context, key, token string) error
}
