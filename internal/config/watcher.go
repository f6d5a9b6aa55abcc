package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/logging"
)

// ProjectWatcher 监视项目文件，文件变化且能成功解析时把新项目交给回调。
// 解析失败时保留旧项目，只记录警告。
type ProjectWatcher struct {
	path     string
	onChange func(*board.Project)
	debounce time.Duration
	ready    chan struct{}
}

type WatcherOption func(*ProjectWatcher)

// WithDebounce 合并连续写入，默认 200ms
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *ProjectWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func NewProjectWatcher(path string, onChange func(*board.Project), opts ...WatcherOption) *ProjectWatcher {
	w := &ProjectWatcher{
		path:     path,
		onChange: onChange,
		debounce: 200 * time.Millisecond,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready 开始监视后关闭
func (w *ProjectWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Run 监视所在目录（编辑器常以重命名方式保存），直到 ctx 结束
func (w *ProjectWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir, base := filepath.Dir(w.path), filepath.Base(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	close(w.ready)
	logging.Infof("Config: watching project %s", w.path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warnf("Config: watcher error: %v", err)
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *ProjectWatcher) reload() {
	p, err := LoadProject(w.path)
	if err != nil {
		logging.Warnf("Config: keeping previous project, reload failed: %v", err)
		return
	}
	logging.Infof("Config: project %s reloaded", p.Name)
	if w.onChange != nil {
		w.onChange(p)
	}
}
