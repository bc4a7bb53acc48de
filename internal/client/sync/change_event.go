package sync

import (
	"time"

	"github.com/openvault/vaultsync/internal/vaultsdk"
)

// ChangeKind is the kind of a local mutation.
type ChangeKind string

const (
	KindCreate ChangeKind = ChangeKind(vaultsdk.ChangeTypeCreate)
	KindModify ChangeKind = ChangeKind(vaultsdk.ChangeTypeModify)
	KindDelete ChangeKind = ChangeKind(vaultsdk.ChangeTypeDelete)
	KindRename ChangeKind = ChangeKind(vaultsdk.ChangeTypeRename)
)

// ChangeEvent records a single observed mutation of a vault document.
// It is immutable once enqueued, except for queue-internal coalescing.
type ChangeEvent struct {
	Kind       ChangeKind
	Path       string // vault-relative
	OldPath    string // rename/delete only
	ObservedAt time.Time
	ModTime    time.Time // zero when the document was not resolvable
	Size       int64
}

// ChangeKey is the deduplication identity of a change event.
type ChangeKey struct {
	Path string
	Kind ChangeKind
}

func (e *ChangeEvent) Key() ChangeKey {
	return ChangeKey{Path: e.Path, Kind: e.Kind}
}

// hasContent reports whether this kind of change carries document content
// on the wire.
func (e *ChangeEvent) hasContent() bool {
	return e.Kind == KindCreate || e.Kind == KindModify || e.Kind == KindRename
}
