package source

import (
	"context"
	"image"
	// Decoders for the supported still image formats.
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	_ "github.com/xfmoulet/qoi"
	"go.viam.com/utils"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go.viam.com/stereorepeater/logging"
	"go.viam.com/stereorepeater/ros"
)

// DirConfig describes a watched directory. Files whose base name starts with LeftPrefix or
// RightPrefix become frames of that side.
type DirConfig struct {
	Path        string
	LeftPrefix  string
	RightPrefix string
	// FrameID is stamped on each frame header.
	LeftFrameID  string
	RightFrameID string
	// Settle delays decoding until a file has seen no events for this long, so a file written
	// in several chunks is read once. Zero decodes on every event.
	Settle time.Duration
}

// DirSource turns still images dropped into a directory into frames.
type DirSource struct {
	cfg     DirConfig
	logger  logging.Logger
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	seq      [2]uint32
	settling map[string]*settlingFile
}

// settlingFile holds the debouncer of one file until its pending decode runs.
type settlingFile struct {
	debounce func(func())
}

// NewDirSource starts watching cfg.Path. Files created after it returns are picked up by Run.
func NewDirSource(cfg DirConfig, logger logging.Logger) (*DirSource, error) {
	if cfg.LeftPrefix == "" {
		cfg.LeftPrefix = "left"
	}
	if cfg.RightPrefix == "" {
		cfg.RightPrefix = "right"
	}
	if cfg.LeftPrefix == cfg.RightPrefix {
		return nil, errors.Errorf("left and right prefixes must differ, both are %q", cfg.LeftPrefix)
	}
	if cfg.Settle < 0 {
		return nil, errors.Errorf("invalid settle duration %v", cfg.Settle)
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot watch image directory")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%q is not a directory", cfg.Path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(cfg.Path); err != nil {
		utils.UncheckedError(watcher.Close())
		return nil, errors.Wrapf(err, "cannot watch %q", cfg.Path)
	}
	return &DirSource{
		cfg:       cfg,
		logger:    logger,
		watcher:   watcher,
		settling:  map[string]*settlingFile{},
	}, nil
}

// Run delivers a frame for every created or rewritten image file until ctx is done.
func (ds *DirSource) Run(ctx context.Context, out Outputs) error {
	defer func() {
		if err := ds.watcher.Close(); err != nil {
			ds.logger.Debugw("error closing watcher", "error", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-ds.watcher.Errors:
			if !ok {
				return nil
			}
			ds.logger.Warnw("watch error", "path", ds.cfg.Path, "error", err)
		case event, ok := <-ds.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path := event.Name
			if ds.cfg.Settle == 0 {
				ds.handle(path, out)
				continue
			}
			pending := ds.settlingFor(path)
			pending.debounce(func() {
				ds.settled(path, pending)
				if ctx.Err() == nil {
					ds.handle(path, out)
				}
			})
		}
	}
}

func (ds *DirSource) settlingFor(path string) *settlingFile {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	pending, ok := ds.settling[path]
	if !ok {
		pending = &settlingFile{debounce: debounce.New(ds.cfg.Settle)}
		ds.settling[path] = pending
	}
	return pending
}

// settled forgets path once its decode is due. Events arriving after this start a new
// debouncer, so a file rewritten later is decoded again.
func (ds *DirSource) settled(path string, pending *settlingFile) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.settling[path] == pending {
		delete(ds.settling, path)
	}
}

func (ds *DirSource) numSettling() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.settling)
}

func (ds *DirSource) handle(path string, out Outputs) {
	base := filepath.Base(path)
	var (
		pub     Publisher
		idx     int
		frameID string
	)
	switch {
	case strings.HasPrefix(base, ds.cfg.LeftPrefix):
		pub, idx, frameID = out.Left, 0, ds.cfg.LeftFrameID
	case strings.HasPrefix(base, ds.cfg.RightPrefix):
		pub, idx, frameID = out.Right, 1, ds.cfg.RightFrameID
	default:
		return
	}

	frame, err := ReadImageFile(path)
	if err != nil {
		// Write events arrive while a file is still being written; the last one decodes.
		ds.logger.Debugw("skipping image file", "path", path, "error", err)
		return
	}
	ds.mu.Lock()
	ds.seq[idx]++
	frame.Header.Seq = ds.seq[idx]
	ds.mu.Unlock()
	frame.Header.FrameID = frameID
	pub.Publish(frame)
}

// ReadImageFile decodes a jpeg, png, bmp, tiff, webp or qoi file into a bgr8 frame.
func ReadImageFile(path string) (*ros.Image, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %q", path)
	}
	return ros.FromGoImage(img), nil
}
