package uploads

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/pagination"
	"github.com/JaimeStill/lectern/pkg/previews"
)

// System defines the public contract for upload session management.
type System interface {
	Handler(maxUploadSize int64) *Handler
	Start(lc *lifecycle.Coordinator) error
	Config() *Config

	Create(ctx context.Context, owner string) (*Session, error)
	Get(owner string, id uuid.UUID) (*Session, error)
	List(owner string, page pagination.PageRequest) pagination.PageResult[Summary]
	Close(ctx context.Context, owner string, id uuid.UUID) error

	// SweepIdle closes sessions with no activity since cutoff and returns how many it closed.
	SweepIdle(ctx context.Context, cutoff time.Time) int
	// CloseAll closes every session and rejects later Create calls.
	CloseAll(ctx context.Context)
}

// Summary describes a session in listings.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"last_active"`
	Files      int       `json:"files"`
	Ready      int       `json:"ready"`
	MaxFiles   int       `json:"max_files"`
}

type manager struct {
	cfg        *Config
	pool       previews.Pool
	sink       Sink
	raster     Rasterizer
	pagination pagination.Config
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	draining bool
}

// New creates a session manager implementing the System interface.
func New(
	cfg *Config,
	pool previews.Pool,
	sink Sink,
	raster Rasterizer,
	pagination pagination.Config,
	logger *slog.Logger,
) System {
	return &manager{
		cfg:        cfg,
		pool:       pool,
		sink:       sink,
		raster:     raster,
		pagination: pagination,
		logger:     logger.With("system", "uploads"),
		sessions:   make(map[uuid.UUID]*Session),
	}
}

func (m *manager) Handler(maxUploadSize int64) *Handler {
	return NewHandler(m, m.logger, m.pagination, maxUploadSize)
}

func (m *manager) Config() *Config {
	return m.cfg
}

// Start registers the idle sweeper and closes every session on shutdown.
func (m *manager) Start(lc *lifecycle.Coordinator) error {
	ttl := m.cfg.SessionTTLDuration()

	lc.Every(m.cfg.SweepIntervalDuration(), func(ctx context.Context) {
		if n := m.SweepIdle(ctx, time.Now().Add(-ttl)); n > 0 {
			m.logger.Info("idle sessions closed", "count", n, "ttl", ttl)
		}
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		m.CloseAll(context.Background())
	})

	return nil
}

func (m *manager) Create(ctx context.Context, owner string) (*Session, error) {
	s := NewSession(owner, m.cfg, m.pool, m.sink, m.raster, m.logger)

	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session opened", "session", s.ID(), "owner", owner)
	return s, nil
}

// Get returns the session when it exists and belongs to owner.
func (m *manager) Get(owner string, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.Owner() != owner {
		return nil, ErrNotFound
	}
	return s, nil
}

// List pages the owner's sessions, newest first. Search matches file names.
func (m *manager) List(owner string, page pagination.PageRequest) pagination.PageResult[Summary] {
	page.Normalize(m.pagination)

	m.mu.RLock()
	owned := lo.Filter(lo.Values(m.sessions), func(s *Session, _ int) bool {
		return s.Owner() == owner
	})
	m.mu.RUnlock()

	slices.SortFunc(owned, func(a, b *Session) int {
		return b.Created().Compare(a.Created())
	})

	if page.Search != nil {
		term := strings.ToLower(*page.Search)
		owned = lo.Filter(owned, func(s *Session, _ int) bool {
			return lo.SomeBy(s.Files(), func(f *File) bool {
				return strings.Contains(strings.ToLower(f.Name), term)
			})
		})
	}

	summaries := lo.Map(owned, func(s *Session, _ int) Summary {
		return summarize(s)
	})
	return pagination.Slice(summaries, page)
}

func (m *manager) Close(ctx context.Context, owner string, id uuid.UUID) error {
	s, err := m.Get(owner, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Close(ctx)
	return nil
}

func (m *manager) SweepIdle(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close(ctx)
	}
	return len(idle)
}

func (m *manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := lo.Values(m.sessions)
	clear(m.sessions)
	m.draining = true
	m.mu.Unlock()

	for _, s := range all {
		s.Close(ctx)
	}
	if len(all) > 0 {
		m.logger.Info("sessions closed", "count", len(all))
	}
}

func summarize(s *Session) Summary {
	files := s.Files()
	return Summary{
		ID:         s.ID(),
		Created:    s.Created(),
		LastActive: s.LastActive(),
		Files:      len(files),
		Ready:      lo.CountBy(files, func(f *File) bool { return f.Status != StatusError }),
		MaxFiles:   s.Config().MaxFiles,
	}
}
