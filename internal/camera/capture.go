// Package camera supplies frames to the tracking loop.
package camera

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"freeswim-tracker/internal/logger"
)

const (
	readRetryDelay  = 10 * time.Millisecond
	failureLogEvery = 100
	component       = "Camera"
)

// Capture reads a camera, stream or video file on its own goroutine and
// keeps only the newest frame.
type Capture struct {
	deviceID string
	source   string
	vc       *gocv.VideoCapture
	box      *mailbox
	logger   logger.Logger

	frames   atomic.Uint64
	failures atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Open opens source, which is a device index ("0") or anything OpenCV can
// open as a stream or file.
func Open(deviceID, source string, log logger.Logger) (*Capture, error) {
	if log == nil {
		log = logger.NoOpLogger{}
	}

	var target interface{} = source
	if idx, err := strconv.Atoi(source); err == nil {
		target = idx
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("open camera %q: %w", source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %q: device not available", source)
	}

	return &Capture{
		deviceID: deviceID,
		source:   source,
		vc:       vc,
		box:      newMailbox(),
		logger:   log,
	}, nil
}

// Size reports the frame size the device announces.
func (c *Capture) Size() (int, int) {
	return int(c.vc.Get(gocv.VideoCaptureFrameWidth)), int(c.vc.Get(gocv.VideoCaptureFrameHeight))
}

// FPS reports the device frame rate, or 0 when unknown.
func (c *Capture) FPS() float64 {
	return c.vc.Get(gocv.VideoCaptureFPS)
}

// Start begins reading frames until ctx ends or Shutdown is called.
func (c *Capture) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.readLoop(ctx)

	c.logger.Info(component, "capture started", map[string]interface{}{
		"device": c.deviceID,
		"source": c.source,
	})
}

func (c *Capture) readLoop(ctx context.Context) {
	defer c.wg.Done()

	buf := gocv.NewMat()
	defer buf.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok := c.vc.Read(&buf); !ok || buf.Empty() {
			n := c.failures.Add(1)
			if n%failureLogEvery == 1 {
				c.logger.Warning(component, "frame read failed", map[string]interface{}{
					"device":   c.deviceID,
					"failures": n,
				})
			}
			time.Sleep(readRetryDelay)
			continue
		}

		c.frames.Add(1)
		buf = c.box.put(buf)
	}
}

// Frame implements pipeline.FrameProvider.
func (c *Capture) Frame(deviceID string) (gocv.Mat, bool) {
	if deviceID != c.deviceID {
		return gocv.Mat{}, false
	}
	return c.box.take()
}

// Ready implements pipeline.FrameNotifier. It fires once for any number of
// frames stored since the last receive.
func (c *Capture) Ready() <-chan struct{} {
	return c.box.ready
}

// Stats returns frames read, frames overwritten before use and read
// failures.
func (c *Capture) Stats() (read, dropped, failed uint64) {
	return c.frames.Load(), c.box.droppedFrames(), c.failures.Load()
}

// Shutdown stops the reader and releases the device.
func (c *Capture) Shutdown() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		c.vc.Close()
		c.box.close()

		read, dropped, failed := c.Stats()
		c.logger.Info(component, "capture stopped", map[string]interface{}{
			"device":  c.deviceID,
			"read":    read,
			"dropped": dropped,
			"failed":  failed,
		})
	})
}
