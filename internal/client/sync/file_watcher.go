package sync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/utils"
	"github.com/rjeczalik/notify"
)

const (
	DefaultIgnoreTimeout = time.Second

	eventBufferSize  = 64
	renamePairWindow = 500 * time.Millisecond
)

// FileWatcher observes the vault directory and turns raw fs notifications
// into ChangeEvents. Non-documents and ignored paths are filtered at this
// boundary; the queue downstream never sees them.
type FileWatcher struct {
	vault      *vault.Vault
	ignoreList *IgnoreList

	rawEvents chan notify.EventInfo
	events    chan *ChangeEvent
	done      chan struct{}
	wg        sync.WaitGroup

	// paths to be suppressed for one event (inbound writes echo back)
	ignoreOnce map[string]time.Time
	ignoreMu   sync.Mutex

	// rename pairing: a disappeared path waiting for its new name
	pendingRename string
	renameTimer   *time.Timer
	renameMu      sync.Mutex
}

func NewFileWatcher(v *vault.Vault, ignoreList *IgnoreList) *FileWatcher {
	return &FileWatcher{
		vault:      v,
		ignoreList: ignoreList,
		ignoreOnce: make(map[string]time.Time),
		done:       make(chan struct{}),
	}
}

func (fw *FileWatcher) Start() error {
	slog.Info("file watcher start", "dir", fw.vault.Root)

	fw.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	fw.events = make(chan *ChangeEvent, eventBufferSize)

	recursivePath := fw.vault.Root + "/..."
	if err := notify.Watch(recursivePath, fw.rawEvents, notify.Create|notify.Write|notify.Remove|notify.Rename); err != nil {
		return err
	}

	fw.wg.Add(1)
	go fw.translateEvents()

	return nil
}

func (fw *FileWatcher) Stop() {
	slog.Info("file watcher stopping")
	close(fw.done)
	if fw.rawEvents != nil {
		notify.Stop(fw.rawEvents)
	}
	fw.wg.Wait()
	slog.Info("file watcher stopped")
}

func (fw *FileWatcher) Events() <-chan *ChangeEvent {
	return fw.events
}

// IgnoreOnce suppresses the next event for a vault-relative path. Used by
// the pull loop so its own writes do not re-enter the change queue.
func (fw *FileWatcher) IgnoreOnce(relPath string) {
	fw.ignoreMu.Lock()
	defer fw.ignoreMu.Unlock()
	fw.ignoreOnce[relPath] = time.Now().Add(DefaultIgnoreTimeout)
}

func (fw *FileWatcher) isIgnoredOnce(relPath string) bool {
	fw.ignoreMu.Lock()
	defer fw.ignoreMu.Unlock()

	expiry, exists := fw.ignoreOnce[relPath]
	if !exists {
		return false
	}
	delete(fw.ignoreOnce, relPath)
	return time.Now().Before(expiry)
}

func (fw *FileWatcher) translateEvents() {
	defer func() {
		fw.flushPendingRename()
		fw.wg.Done()
		close(fw.events)
	}()

	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.rawEvents:
			if !ok {
				return
			}
			fw.handleRawEvent(event)
		}
	}
}

func (fw *FileWatcher) handleRawEvent(event notify.EventInfo) {
	absPath := event.Path()
	if !vault.IsDocument(absPath) {
		return
	}

	relPath, err := fw.vault.RelPath(absPath)
	if err != nil {
		return
	}
	if fw.ignoreList != nil && fw.ignoreList.ShouldIgnore(relPath) {
		return
	}
	if fw.isIgnoredOnce(relPath) {
		slog.Debug("file watcher suppressed echo", "path", relPath)
		return
	}

	switch event.Event() {
	case notify.Write:
		fw.emit(&ChangeEvent{Kind: KindModify, Path: relPath})
	case notify.Remove:
		fw.emit(&ChangeEvent{Kind: KindDelete, Path: relPath, OldPath: relPath})
	case notify.Create:
		fw.emitCreateOrRename(relPath)
	case notify.Rename:
		// rename arrives as two raw events: one for the vanished path,
		// one for the new path
		if utils.FileExists(absPath) {
			fw.emitCreateOrRename(relPath)
		} else {
			fw.trackVanished(relPath)
		}
	}
}

// emitCreateOrRename pairs an appearing path with a recently vanished one.
func (fw *FileWatcher) emitCreateOrRename(relPath string) {
	fw.renameMu.Lock()
	oldPath := fw.pendingRename
	if oldPath != "" {
		fw.pendingRename = ""
		if fw.renameTimer != nil {
			fw.renameTimer.Stop()
			fw.renameTimer = nil
		}
	}
	fw.renameMu.Unlock()

	if oldPath != "" && oldPath != relPath {
		fw.emit(&ChangeEvent{Kind: KindRename, Path: relPath, OldPath: oldPath})
		return
	}
	fw.emit(&ChangeEvent{Kind: KindCreate, Path: relPath})
}

// trackVanished remembers a disappeared path for a short window. If no new
// name shows up in time, the rename degrades to a delete.
func (fw *FileWatcher) trackVanished(relPath string) {
	fw.renameMu.Lock()
	defer fw.renameMu.Unlock()

	// an older unpaired rename becomes a delete
	if fw.pendingRename != "" && fw.pendingRename != relPath {
		stale := fw.pendingRename
		fw.emit(&ChangeEvent{Kind: KindDelete, Path: stale, OldPath: stale})
	}
	if fw.renameTimer != nil {
		fw.renameTimer.Stop()
	}

	fw.pendingRename = relPath
	fw.renameTimer = time.AfterFunc(renamePairWindow, fw.flushPendingRename)
}

func (fw *FileWatcher) flushPendingRename() {
	fw.renameMu.Lock()
	stale := fw.pendingRename
	fw.pendingRename = ""
	if fw.renameTimer != nil {
		fw.renameTimer.Stop()
		fw.renameTimer = nil
	}
	fw.renameMu.Unlock()

	if stale != "" {
		fw.emit(&ChangeEvent{Kind: KindDelete, Path: stale, OldPath: stale})
	}
}

func (fw *FileWatcher) emit(event *ChangeEvent) {
	event.ObservedAt = time.Now().UTC()
	select {
	case fw.events <- event:
		slog.Debug("file watcher", "kind", event.Kind, "path", event.Path)
	default:
		slog.Warn("file watcher dropped event", "reason", "channel full", "path", event.Path)
	}
}
