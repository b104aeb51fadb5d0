package pipeline

import (
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/logger"
	"freeswim-tracker/internal/opencv/memory"
	"freeswim-tracker/internal/opencv/safe"
	"freeswim-tracker/internal/processing/annotate"
	"freeswim-tracker/internal/processing/background"
	"freeswim-tracker/internal/processing/contours"
	"freeswim-tracker/internal/processing/filters"
	"freeswim-tracker/internal/processing/selection"
)

const component = "Tracker"

var errNotReady = errors.New("tracker not initialized")

// TrackerConfig fixes what the camera delivers. Width and Height are the
// raw frame size before orientation correction.
type TrackerConfig struct {
	DeviceID string
	Width    int
	Height   int
}

// Tracker is the freeswim particle tracking routine: background
// subtraction, mask cleanup, contour ranking and calibration for every
// frame of one camera.
type Tracker struct {
	cfg      TrackerConfig
	store    *config.Store
	memory   *memory.Manager
	logger   logger.Logger
	observer Observer

	normalizer *filters.Normalizer
	background *background.Model
	mask       *filters.MaskProcessor
	extractor  *contours.Extractor
	selector   *selection.Selector
	annotator  *annotate.Annotator

	// Fixed at Setup from the initial snapshot.
	capacity  int
	thumbnail image.Point
	width     int
	height    int

	gray       gocv.Mat
	foreground gocv.Mat
	filtered   gocv.Mat
	binary     gocv.Mat
	display    gocv.Mat

	sequence  uint64
	allocated bool
	ready     bool
}

func NewTracker(cfg TrackerConfig, store *config.Store, mem *memory.Manager, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Tracker{
		cfg:       cfg,
		store:     store,
		memory:    mem,
		logger:    log,
		observer:  nopObserver{},
		mask:      filters.NewMaskProcessor(),
		extractor: contours.NewExtractor(),
		selector:  selection.NewSelector(),
		annotator: annotate.NewAnnotator(),
	}
}

// SetObserver must be called before the first Process.
func (t *Tracker) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	t.observer = o
}

// Setup allocates the background model and working buffers.
func (t *Tracker) Setup() error {
	if t.allocated {
		return nil
	}
	if err := safe.ValidateDimensions(t.cfg.Width, t.cfg.Height, "tracker setup"); err != nil {
		return err
	}

	p := t.store.Snapshot()
	t.capacity = p.MaxParticles
	t.thumbnail = p.ThumbnailSize

	t.normalizer = filters.NewNormalizer(p.Orientation, t.cfg.Width, t.cfg.Height)
	t.width, t.height = t.normalizer.OutputSize()
	t.background = background.New(p.History)

	t.gray = gocv.NewMat()
	t.foreground = gocv.NewMat()
	t.filtered = gocv.NewMat()
	t.binary = gocv.NewMat()
	t.display = gocv.NewMat()

	t.allocated = true
	t.logger.Debug(component, "resources allocated", map[string]interface{}{
		"device":   t.cfg.DeviceID,
		"size":     fmt.Sprintf("%dx%d", t.width, t.height),
		"capacity": t.capacity,
		"history":  p.History,
	})
	return nil
}

// Initialize moves the tracker into its ready state.
func (t *Tracker) Initialize() error {
	if !t.allocated {
		return fmt.Errorf("initialize before setup: %w", errNotReady)
	}
	t.ready = true

	p := t.store.Snapshot()
	t.logger.Info(component, "tracker ready", map[string]interface{}{
		"device": t.cfg.DeviceID,
		"params": p.String(),
	})
	return nil
}

// OutputSize is the size of every frame-sized output.
func (t *Tracker) OutputSize() (int, int) {
	return t.width, t.height
}

func (t *Tracker) Capacity() int {
	return t.capacity
}

// Process runs one frame. The returned result holds one reference to each
// output Mat, which the caller must hand on or Release.
func (t *Tracker) Process(frames FrameProvider) (*FrameResult, bool) {
	if !t.ready {
		t.observer.FrameSkipped("not_ready")
		return nil, false
	}

	frame, ok := frames.Frame(t.cfg.DeviceID)
	if !ok || frame.Empty() {
		t.observer.FrameSkipped("no_frame")
		return nil, false
	}

	start := time.Now()
	p := t.store.Snapshot()

	err := safe.ValidateFrame(frame, "tracker process")
	if err == nil {
		err = t.normalizer.Normalize(frame, &t.gray)
	}
	if err != nil {
		t.logger.Error(component, err, map[string]interface{}{"device": t.cfg.DeviceID})
		t.observer.FrameSkipped("bad_frame")
		return nil, false
	}

	t.sequence++
	result := newPaddedResult(t.capacity, t.thumbnail)
	result.Sequence = t.sequence
	result.Timestamp = start
	result.ParamsVersion = p.Version

	sel, rawCount, detectErr := t.detect(p)
	if detectErr != nil {
		t.logger.Error(component, detectErr, map[string]interface{}{
			"sequence": t.sequence,
		})
		t.clearMasks()
		sel, rawCount = selection.Selection{}, 0
	}

	result.RawCount = uint64(rawCount)
	result.FilteredCount = uint64(sel.Accepted)
	result.fill(sel.Particles)

	if err := t.annotator.Annotate(t.gray, result.Particles, t.thumbnail, &t.display); err != nil {
		t.logger.Error(component, err, nil)
		t.display.Close()
		t.display = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), t.height, t.width, gocv.MatTypeCV8UC3)
	}

	result.Filtered = t.output(t.filtered, "freeswim_filtered")
	result.Binary = t.output(t.binary, "freeswim_binary")
	result.Display = t.output(t.display, "freeswim_display")

	t.observer.FrameProcessed(result, time.Since(start))
	return result, true
}

func (t *Tracker) detect(p config.Parameters) (selection.Selection, int, error) {
	if err := t.background.Update(t.gray, &t.foreground); err != nil {
		return selection.Selection{}, 0, err
	}
	if err := t.mask.SmoothAndThreshold(t.foreground, p.FilterSize, p.BinaryThreshold, &t.filtered, &t.binary); err != nil {
		return selection.Selection{}, 0, err
	}

	found := t.extractor.Extract(t.binary)
	return t.selector.Select(found, t.gray, p), len(found), nil
}

// clearMasks leaves blank frame-sized masks so a failed frame still
// publishes well-formed outputs.
func (t *Tracker) clearMasks() {
	t.filtered.Close()
	t.binary.Close()
	t.filtered = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), t.height, t.width, gocv.MatTypeCV8UC1)
	t.binary = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), t.height, t.width, gocv.MatTypeCV8UC1)
}

func (t *Tracker) output(src gocv.Mat, tag string) *safe.Mat {
	out, err := t.memory.GetMat(src.Rows(), src.Cols(), src.Type(), tag)
	if err != nil {
		t.logger.Error(component, fmt.Errorf("output %s: %w", tag, err), nil)
		return nil
	}
	if err := out.CopyFrom(src); err != nil {
		t.logger.Error(component, fmt.Errorf("output %s: %w", tag, err), nil)
		out.Release()
		return nil
	}
	return out
}

// Close frees the working buffers. Results already handed out stay valid.
func (t *Tracker) Close() error {
	if !t.allocated {
		return nil
	}
	t.ready = false
	t.allocated = false

	t.gray.Close()
	t.foreground.Close()
	t.filtered.Close()
	t.binary.Close()
	t.display.Close()
	t.normalizer.Close()
	return t.background.Close()
}
