package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/bistiadi/portfolio/internal/auth"
	"github.com/bistiadi/portfolio/internal/models"
	"github.com/bistiadi/portfolio/internal/storage"
	"github.com/bistiadi/portfolio/pkg/logger"
)

const (
	defaultSessionSpec = "@hourly"
	defaultPhotoSpec   = "@daily"
)

// Cleaner coordinates background maintenance tasks: purging expired sessions
// and sweeping photo directories whose owner no longer exists. The audit log
// is deliberately left alone; it is an append-only record.
type Cleaner struct {
	db       *gorm.DB
	sessions *iauth.SessionService
	photos   storage.PhotoStore
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	enabled  bool

	sessionSchedule string
	photoSchedule   string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithPhotoSchedule overrides the cron specification for the photo sweep.
func WithPhotoSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.photoSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, photos storage.PhotoStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		sessions:        sessions,
		photos:          photos,
		now:             time.Now,
		sessionSchedule: defaultSessionSpec,
		photoSchedule:   defaultPhotoSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || (cleaner.photos != nil && cleaner.db != nil)

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			ctx := context.Background()
			if _, err := c.sessions.CleanupExpired(ctx); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.photos != nil && c.db != nil {
		if _, err := c.cron.AddFunc(c.photoSchedule, func() {
			ctx := context.Background()
			if _, err := c.SweepPhotos(ctx); err != nil {
				c.log.Warn("photo sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.photos != nil && c.db != nil {
		if _, err := c.SweepPhotos(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// SweepPhotos deletes photo directories that no longer map to a user and
// returns how many were removed.
func (c *Cleaner) SweepPhotos(ctx context.Context) (int, error) {
	var usernames []string
	if err := c.db.WithContext(ctx).
		Model(&models.User{}).
		Pluck("username", &usernames).Error; err != nil {
		return 0, err
	}

	keep := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		keep[storage.SanitizeUsername(name)] = struct{}{}
	}

	return c.photos.Sweep(ctx, keep)
}
