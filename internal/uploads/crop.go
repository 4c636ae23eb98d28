package uploads

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/pkg/previews"
)

// cropDialog is the per-session crop state machine: closed, or open on one
// target file. generation changes whenever the dialog opens, closes, or
// retargets, so a rasterization started under one generation can tell that
// its dialog is gone.
type cropDialog struct {
	open       bool
	target     uuid.UUID
	generation uint64
	natural    Size
	display    Size
	pending    *Rect
	committed  *Rect
	applying   bool
}

func (d *cropDialog) reset() {
	if !d.open {
		return
	}
	gen := d.generation + 1
	*d = cropDialog{generation: gen}
}

// CropState is a snapshot of the crop dialog.
type CropState struct {
	Open        bool            `json:"open"`
	FileID      *uuid.UUID      `json:"file_id,omitempty"`
	Source      previews.Handle `json:"source,omitempty"`
	Natural     Size            `json:"natural"`
	Display     Size            `json:"display"`
	Pending     *Rect           `json:"pending,omitempty"`
	Committed   *Rect           `json:"committed,omitempty"`
	Applying    bool            `json:"applying"`
	AspectRatio float64         `json:"aspect_ratio,omitempty"`
	MinWidth    int             `json:"min_width"`
	MinHeight   int             `json:"min_height"`
}

// CropState returns the current dialog state.
func (s *Session) CropState() CropState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cropState()
}

// OpenCrop opens the dialog on a decodable raster file with a preview and no
// error, replacing any dialog already open. An image smaller than the minimum
// selection is refused with ErrSelectionTooSmall. The displayed size starts
// at the natural size and both selections start at the initial centered
// rectangle. The initial rectangle is committed only when it passes the
// selection checks.
func (s *Session) OpenCrop(ctx context.Context, fileID uuid.UUID) (CropState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return CropState{}, ErrSessionClosed
	}

	f := s.find(fileID)
	if f == nil {
		return CropState{}, ErrCropIneligible
	}
	if err := f.cropCheck(s.cfg.Crop); err != nil {
		return CropState{}, err
	}

	natural := *f.natural
	initial := initialSelection(natural, s.cfg.Crop.AspectRatio)

	s.crop = cropDialog{
		open:       true,
		target:     fileID,
		generation: s.crop.generation + 1,
		natural:    natural,
		display:    natural,
		pending:    &initial,
	}
	if s.checkSelection(initial) == nil {
		committed := initial
		s.crop.committed = &committed
	}

	s.touch()
	return s.cropState(), nil
}

// SetCropDisplay records the rendered image size and rescales both
// selections into it. A committed selection that no longer passes the
// selection checks at the new size is dropped.
func (s *Session) SetCropDisplay(width, height float64) (CropState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCrop(); err != nil {
		return CropState{}, err
	}
	if width <= 0 || height <= 0 {
		return CropState{}, fmt.Errorf("%w: display size must be positive", ErrInvalidRequest)
	}

	sx := width / s.crop.display.Width
	sy := height / s.crop.display.Height
	if s.crop.pending != nil {
		r := s.crop.pending.scale(sx, sy)
		s.crop.pending = &r
	}
	s.crop.display = Size{Width: width, Height: height}
	if s.crop.committed != nil {
		r := s.crop.committed.scale(sx, sy)
		s.crop.committed = &r
		if s.checkSelection(r) != nil {
			s.crop.committed = nil
		}
	}

	s.touch()
	return s.cropState(), nil
}

// SelectCrop updates the pending selection while the user drags.
func (s *Session) SelectCrop(r Rect) (CropState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCrop(); err != nil {
		return CropState{}, err
	}
	if !r.within(s.crop.display) {
		return CropState{}, ErrSelectionOutOfBounds
	}

	s.crop.pending = &r
	s.touch()
	return s.cropState(), nil
}

// CommitCrop finishes a drag. The selection must meet the minimum size in
// displayed pixels, stay inside the displayed image, and match the aspect
// ratio within tolerance.
func (s *Session) CommitCrop(r Rect) (CropState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireCrop(); err != nil {
		return CropState{}, err
	}
	if err := s.checkSelection(r); err != nil {
		return CropState{}, err
	}

	pending := r
	s.crop.pending = &pending
	s.crop.committed = &r
	s.touch()
	return s.cropState(), nil
}

// CancelCrop closes the dialog and discards both selections.
func (s *Session) CancelCrop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.crop.reset()
	s.touch()
	return nil
}

// ApplyCrop renders the committed selection and replaces the target's
// content. The committed selection is checked again against the current
// display before rendering. Rendering runs outside the session lock; only one apply runs per
// session at a time. If the dialog was cancelled or retargeted meanwhile the
// result is discarded with ErrCropStale. A rendering failure leaves the file
// untouched and the dialog open.
func (s *Session) ApplyCrop(ctx context.Context) (*File, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if !s.crop.open {
		s.mu.Unlock()
		return nil, ErrCropClosed
	}
	if s.crop.committed == nil {
		s.mu.Unlock()
		return nil, ErrNoSelection
	}
	if s.crop.applying {
		s.mu.Unlock()
		return nil, ErrApplyInFlight
	}
	if err := s.checkSelection(*s.crop.committed); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	f := s.find(s.crop.target)
	if f == nil {
		s.crop.reset()
		s.mu.Unlock()
		return nil, ErrFileNotFound
	}

	gen := s.crop.generation
	target := s.crop.target
	src := f.Content
	region := s.crop.committed.naturalRegion(s.crop.natural, s.crop.display)
	s.crop.applying = true
	s.mu.Unlock()

	out, rasterErr := s.raster.Rasterize(ctx, src, region)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crop.generation != gen {
		s.logger.Info("discarding stale crop result", "file", target)
		return nil, ErrCropStale
	}
	s.crop.applying = false

	if rasterErr != nil {
		s.logger.Error("crop failed", "file", target, "region", region, "error", rasterErr)
		return nil, fmt.Errorf("%w: %w", ErrRasterize, rasterErr)
	}

	f = s.find(target)
	if f == nil {
		s.crop.reset()
		return nil, ErrFileNotFound
	}

	h, err := s.pool.Create(ctx, out.Data, out.ContentType)
	if err != nil {
		s.logger.Error("cropped preview failed", "file", target, "error", err)
		return nil, fmt.Errorf("create cropped preview: %w", err)
	}

	s.revoke(ctx, f.CroppedPreview)
	if f.Original == nil {
		f.Original = f.Content
	}
	f.setContent(out)
	f.CroppedPreview = h
	s.crop.reset()

	s.touch()
	s.notify(ctx)
	return f.clone(), nil
}

// checkSelection applies the minimum size, bounds, and aspect checks to r
// in displayed pixels.
func (s *Session) checkSelection(r Rect) error {
	if r.Width < float64(s.cfg.Crop.MinWidth) || r.Height < float64(s.cfg.Crop.MinHeight) {
		return ErrSelectionTooSmall
	}
	if !r.within(s.crop.display) {
		return ErrSelectionOutOfBounds
	}
	if !r.matchesAspect(s.cfg.Crop.AspectRatio) {
		return ErrAspectMismatch
	}
	return nil
}

func (s *Session) requireCrop() error {
	if s.closed {
		return ErrSessionClosed
	}
	if !s.crop.open {
		return ErrCropClosed
	}
	return nil
}

func (s *Session) cropState() CropState {
	st := CropState{
		Open:        s.crop.open,
		AspectRatio: s.cfg.Crop.AspectRatio,
		MinWidth:    s.cfg.Crop.MinWidth,
		MinHeight:   s.cfg.Crop.MinHeight,
	}
	if !s.crop.open {
		return st
	}

	target := s.crop.target
	st.FileID = &target
	st.Natural = s.crop.natural
	st.Display = s.crop.display
	st.Applying = s.crop.applying
	if s.crop.pending != nil {
		r := *s.crop.pending
		st.Pending = &r
	}
	if s.crop.committed != nil {
		r := *s.crop.committed
		st.Committed = &r
	}
	if f := s.find(target); f != nil {
		st.Source = f.DisplayPreview()
	}
	return st
}
