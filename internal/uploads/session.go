package uploads

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/JaimeStill/lectern/pkg/previews"
)

// AddResult reports the files admitted by Add and the number of inputs
// dropped because the session was full.
type AddResult struct {
	Files   []*File `json:"files"`
	Dropped int     `json:"dropped"`
}

// Patch holds the fields Update merges into a file. Nil fields are left alone.
type Patch struct {
	Name           *string
	Content        *Blob
	Original       *Blob
	CroppedPreview *previews.Handle
}

// Session is the upload state of one user: an ordered, bounded list of
// candidate files plus at most one open crop dialog. Every operation holds
// the session lock for its duration.
type Session struct {
	id      uuid.UUID
	owner   string
	created time.Time

	cfg    *Config
	pool   previews.Pool
	sink   Sink
	raster Rasterizer
	logger *slog.Logger

	mu         sync.Mutex
	files      []*File
	ready      []*Blob
	crop       cropDialog
	closed     bool
	lastActive time.Time
}

// NewSession creates an empty session owned by owner.
func NewSession(
	owner string,
	cfg *Config,
	pool previews.Pool,
	sink Sink,
	raster Rasterizer,
	logger *slog.Logger,
) *Session {
	id := uuid.New()
	now := time.Now()
	return &Session{
		id:         id,
		owner:      owner,
		created:    now,
		cfg:        cfg,
		pool:       pool,
		sink:       sink,
		raster:     raster,
		logger:     logger.With("session", id),
		ready:      []*Blob{},
		lastActive: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Owner returns the subject the session belongs to.
func (s *Session) Owner() string { return s.owner }

// Created returns the creation time.
func (s *Session) Created() time.Time { return s.created }

// Config returns the limits the session enforces.
func (s *Session) Config() *Config { return s.cfg }

// LastActive returns the time of the last operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Files returns a snapshot of the file list in order.
func (s *Session) Files() []*File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// File returns a snapshot of one file.
func (s *Session) File(id uuid.UUID) (*File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.find(id); f != nil {
		return f.clone(), true
	}
	return nil, false
}

// Ready returns the list most recently delivered to the sink.
func (s *Session) Ready() []*Blob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ready)
}

// Add admits the inputs that fit in the remaining capacity, in order, and
// validates each. Inputs beyond capacity are dropped and counted. A full
// session or an empty batch changes nothing and notifies no one.
func (s *Session) Add(ctx context.Context, inputs []Input) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return AddResult{}, ErrSessionClosed
	}

	room := s.cfg.MaxFiles - len(s.files)
	if room <= 0 || len(inputs) == 0 {
		return AddResult{Files: []*File{}, Dropped: len(inputs)}, nil
	}

	accepted := inputs[:min(room, len(inputs))]
	added := make([]*File, 0, len(accepted))
	for _, in := range accepted {
		f := s.admit(ctx, in)
		s.files = append(s.files, f)
		added = append(added, f.clone())
	}

	s.touch()
	s.notify(ctx)

	result := AddResult{Files: added, Dropped: len(inputs) - len(accepted)}
	if result.Dropped > 0 {
		s.logger.Info("inputs dropped at capacity", "dropped", result.Dropped, "max_files", s.cfg.MaxFiles)
	}
	return result, nil
}

// Remove deletes a file, revoking its previews. Unknown ids are a no-op.
// A crop dialog targeting the file is cancelled.
func (s *Session) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}

	idx := slices.IndexFunc(s.files, func(f *File) bool { return f.ID == id })
	if idx < 0 {
		return false, nil
	}

	s.release(ctx, s.files[idx])
	s.files = slices.Delete(s.files, idx, idx+1)
	if s.crop.open && s.crop.target == id {
		s.crop.reset()
	}

	s.touch()
	s.notify(ctx)
	return true, nil
}

// Clear removes every file, revokes every preview, and cancels the crop dialog.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	for _, f := range s.files {
		s.release(ctx, f)
	}
	s.files = nil
	s.crop.reset()

	s.touch()
	s.notify(ctx)
	return nil
}

// Update merges patch into the file. Unknown ids are a no-op. Replacing the
// cropped preview revokes the previous one.
func (s *Session) Update(ctx context.Context, id uuid.UUID, patch Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}

	f := s.find(id)
	if f == nil {
		return false, nil
	}

	if patch.Name != nil {
		f.Name = *patch.Name
	}
	if patch.Content != nil {
		f.setContent(patch.Content)
	}
	if patch.Original != nil {
		f.Original = patch.Original
	}
	if patch.CroppedPreview != nil && *patch.CroppedPreview != f.CroppedPreview {
		s.revoke(ctx, f.CroppedPreview)
		f.CroppedPreview = *patch.CroppedPreview
	}

	s.touch()
	s.notify(ctx)
	return true, nil
}

// Close tears the session down, revoking every outstanding preview. Later
// mutations return ErrSessionClosed. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for _, f := range s.files {
		s.release(ctx, f)
	}
	s.files = nil
	s.crop.reset()
	s.closed = true

	s.logger.Info("session closed")
}

func (s *Session) admit(ctx context.Context, in Input) *File {
	f := &File{
		ID:        uuid.New(),
		Name:      in.Name,
		Type:      in.Type,
		PageCount: in.PageCount,
	}
	f.setContent(&Blob{Name: in.Name, ContentType: in.Type, Data: in.Data})

	if kind, msg := s.cfg.Validate(f.Size, f.Type); kind != "" {
		f.Status = StatusError
		f.Progress = 0
		f.Error = &msg
		f.ErrorKind = kind
		return f
	}

	f.Status = StatusComplete
	f.Progress = 100

	// Only decodable rasters get a preview. Vector and markup image types
	// are served by the pool under their declared type.
	if f.natural != nil {
		h, err := s.pool.Create(ctx, in.Data, f.Type)
		if err != nil {
			s.logger.Warn("preview unavailable", "file", f.Name, "error", err)
		} else {
			f.Preview = h
		}
	}

	return f
}

func (s *Session) release(ctx context.Context, f *File) {
	s.revoke(ctx, f.Preview)
	s.revoke(ctx, f.CroppedPreview)
	f.Preview = ""
	f.CroppedPreview = ""
}

func (s *Session) revoke(ctx context.Context, h previews.Handle) {
	if h == "" {
		return
	}
	if err := s.pool.Revoke(ctx, h); err != nil {
		s.logger.Warn("preview revoke failed", "handle", h, "error", err)
	}
}

func (s *Session) notify(ctx context.Context) {
	s.ready = lo.FilterMap(s.files, func(f *File, _ int) (*Blob, bool) {
		return f.Content, f.Status != StatusError
	})
	s.sink.FilesReady(ctx, s.id, slices.Clone(s.ready))
}

func (s *Session) find(id uuid.UUID) *File {
	for _, f := range s.files {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (s *Session) snapshot() []*File {
	return lo.Map(s.files, func(f *File, _ int) *File { return f.clone() })
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}
