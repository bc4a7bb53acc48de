package sync

import (
	"context"
	"path"
	"time"

	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/vaultsdk"
)

// Deliverer sends one change payload and classifies the outcome.
// *vaultsdk.ChangesAPI is the production implementation.
type Deliverer interface {
	Send(ctx context.Context, payload *vaultsdk.ChangePayload) *vaultsdk.DeliveryResult
}

// buildPayload hydrates a batch of change events into a wire payload.
// A failed content read degrades that change to a null content with an
// error marker; it never fails the batch.
func buildPayload(v *vault.Vault, events []*ChangeEvent, isBulkSync bool) *vaultsdk.ChangePayload {
	changes := make([]*vaultsdk.Change, 0, len(events))
	for _, event := range events {
		changes = append(changes, buildChange(v, event))
	}
	return &vaultsdk.ChangePayload{
		Timestamp:     time.Now().UTC(),
		IsInitialSync: isBulkSync,
		Changes:       changes,
	}
}

func buildChange(v *vault.Vault, event *ChangeEvent) *vaultsdk.Change {
	change := &vaultsdk.Change{
		Type:      vaultsdk.ChangeType(event.Kind),
		FilePath:  event.Path,
		Timestamp: event.ObservedAt,
		Size:      event.Size,
	}

	if !event.ModTime.IsZero() {
		change.Mtime = event.ModTime.UnixMilli()
	}

	if event.Kind == KindRename || event.Kind == KindDelete {
		change.OldPath = event.OldPath
	}

	if event.hasContent() {
		change.FileName = path.Base(event.Path)
		change.Folder = folderOf(event.Path)

		content, err := v.Read(event.Path)
		if err != nil {
			change.Error = "failed to read content: " + err.Error()
		} else {
			s := string(content)
			change.Content = &s
		}
	}

	return change
}

func folderOf(relPath string) string {
	folder := path.Dir(relPath)
	if folder == "." {
		return ""
	}
	return folder
}
