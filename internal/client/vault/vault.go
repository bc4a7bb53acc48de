// Package vault is the local document store: a directory tree of text
// documents addressed by vault-relative paths.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/openvault/vaultsync/internal/utils"
)

const (
	metadataDir = ".vaultsync"
	lockFile    = "vault.lock"
)

var (
	ErrVaultLocked = errors.New("vault locked by another process")
)

// documentExts are the file extensions treated as syncable documents.
var documentExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Document is the metadata of one local document.
type Document struct {
	Path    string // vault-relative, slash-separated
	Size    int64
	ModTime time.Time
}

type Vault struct {
	Root        string
	MetadataDir string

	flock *flock.Flock
}

func New(rootDir string) (*Vault, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	return &Vault{
		Root:        root,
		MetadataDir: filepath.Join(root, metadataDir),
		flock:       flock.New(filepath.Join(root, metadataDir, lockFile)),
	}, nil
}

// Bootstrap prepares the vault directory and takes the instance lock.
func (v *Vault) Bootstrap() error {
	if err := utils.EnsureDir(v.Root); err != nil {
		return fmt.Errorf("failed to create vault dir: %w", err)
	}
	if err := utils.EnsureDir(v.MetadataDir); err != nil {
		return fmt.Errorf("failed to create metadata dir: %w", err)
	}

	locked, err := v.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire vault lock: %w", err)
	}
	if !locked {
		return ErrVaultLocked
	}

	return nil
}

func (v *Vault) Close() error {
	return v.flock.Unlock()
}

// IsDocument reports whether a path looks like a syncable document.
func IsDocument(path string) bool {
	return documentExts[strings.ToLower(filepath.Ext(path))]
}

// AbsPath returns the absolute path of a vault-relative path.
func (v *Vault) AbsPath(relPath string) string {
	return filepath.Join(v.Root, filepath.FromSlash(relPath))
}

// RelPath converts an absolute path inside the vault to a relative
// slash-separated document path.
func (v *Vault) RelPath(absPath string) (string, error) {
	rel, err := filepath.Rel(v.Root, absPath)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s outside vault", absPath)
	}
	return filepath.ToSlash(rel), nil
}

// Stat returns the metadata of one document, or nil if it does not exist.
func (v *Vault) Stat(relPath string) *Document {
	info, err := os.Stat(v.AbsPath(relPath))
	if err != nil || info.IsDir() {
		return nil
	}
	return &Document{
		Path:    relPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// Read returns the content of one document.
func (v *Vault) Read(relPath string) ([]byte, error) {
	return os.ReadFile(v.AbsPath(relPath))
}

// Write stores a document, creating parent folders as needed.
func (v *Vault) Write(relPath string, content []byte) error {
	absPath := v.AbsPath(relPath)
	if err := utils.EnsureParent(absPath); err != nil {
		return err
	}
	return os.WriteFile(absPath, content, 0o644)
}

// List walks the vault and returns every document, sorted by walk order.
// The metadata dir and non-document files are skipped. Cancellation is
// checked per directory entry.
func (v *Vault) List(done <-chan struct{}) ([]*Document, error) {
	var docs []*Document

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error: %w", err)
		}

		select {
		case <-done:
			return fs.SkipAll
		default:
		}

		if d.IsDir() {
			if path == v.Root {
				return nil
			}
			// hidden dirs (including the metadata dir) are not synced
			if strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		if !IsDocument(path) {
			return nil
		}

		relPath, err := v.RelPath(path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		docs = append(docs, &Document{
			Path:    relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	}

	if err := filepath.WalkDir(v.Root, walkFn); err != nil {
		return nil, err
	}

	return docs, nil
}
