// Package watch observes the NAS share directories directly with fsnotify.
// It is the local ingest path: where the appliance firmware cannot deliver
// upload webhooks, watching the volume yields the same upload events.
package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
)

// EventSink receives the upload events the watcher derives from filesystem
// activity. *audit.Pipeline satisfies it.
type EventSink interface {
	Handle(ev classify.UploadEvent) (models.Finding, error)
}

// Options tunes the watcher.
type Options struct {
	// Settle is how long a file must stay unmodified before it counts as a
	// completed upload. NAS clients write large files in many chunks; acting
	// on the first write would classify a half-copied file.
	Settle time.Duration

	// Poll is the period of the settle check loop.
	Poll time.Duration
}

func (o *Options) applyDefaults() {
	if o.Settle <= 0 {
		o.Settle = 2 * time.Second
	}
	if o.Poll <= 0 {
		o.Poll = 500 * time.Millisecond
	}
}

// Watcher turns filesystem events under the watched roots into upload
// events for the audit pipeline.
type Watcher struct {
	roots []string
	sink  EventSink
	opts  Options
	log   *zap.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time // path -> last write seen

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a watcher over the given root directories. Roots that do not
// exist are logged and skipped; a NAS volume may be mounted later.
func New(roots []string, sink EventSink, opts Options, log *zap.Logger) (*Watcher, error) {
	opts.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		roots:      roots,
		sink:       sink,
		opts:       opts,
		log:        log,
		fsw:        fsw,
		pending:    make(map[string]time.Time),
		ctx:        ctx,
		cancelFunc: cancel,
	}, nil
}

// Start registers the watch roots and runs the event and settle loops.
func (w *Watcher) Start() error {
	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			w.log.Warn("cannot watch directory", zap.String("root", root), zap.Error(err))
			continue
		}
		w.log.Info("watching upload directory", zap.String("root", root))
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Stop halts both loops and closes the underlying watcher.
func (w *Watcher) Stop() error {
	w.cancelFunc()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if name := filepath.Base(path); len(name) > 1 && name[0] == '.' {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("cannot watch subdirectory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// New directories appear when a client creates a folder
					// tree during a bulk upload.
					if err := w.addRecursive(event.Name); err != nil {
						w.log.Warn("cannot watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}

			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.mu.Lock()
				w.pending[event.Name] = time.Now()
				w.mu.Unlock()
			}

			if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				w.mu.Lock()
				delete(w.pending, event.Name)
				w.mu.Unlock()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("filesystem watch error", zap.Error(err))
		}
	}
}

// processPending emits an upload event for each file once it has settled.
func (w *Watcher) processPending() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var settled []string
			for path, last := range w.pending {
				if now.Sub(last) >= w.opts.Settle {
					settled = append(settled, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range settled {
				w.emit(path)
			}
		}
	}
}

// emit stats and sniffs one settled file and hands it to the sink.
func (w *Watcher) emit(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return // deleted before it settled
	}

	sig, err := sniffFile(path)
	if err != nil {
		w.log.Warn("cannot read file for sniffing", zap.String("path", path), zap.Error(err))
		return
	}

	ev := classify.UploadEvent{
		Timestamp: info.ModTime(),
		FilePath:  path,
		SizeBytes: info.Size(),
		Signature: sig,
	}
	if _, err := w.sink.Handle(ev); err != nil {
		w.log.Error("upload event not recorded", zap.String("path", path), zap.Error(err))
	}
}

func sniffFile(path string) (sniff.Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return sniff.SigUnknown, err
	}
	defer f.Close()

	head := make([]byte, sniff.ProbeLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return sniff.SigUnknown, err
	}
	return sniff.Detect(head[:n]), nil
}
