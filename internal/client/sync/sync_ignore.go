package sync

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openvault/vaultsync/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

const ignoreFileName = ".vaultignore"

var defaultIgnoreLines = []string{
	// vaultsync internals
	".vaultsync/",
	ignoreFileName,
	// editors / tooling
	".git",
	".vscode",
	".idea",
	".trash/",
	// scratch files
	"*.tmp",
	"*.swp",
	"~*",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
}

// IgnoreList filters paths out of sync using gitignore syntax: built-in
// defaults plus an optional .vaultignore at the vault root.
type IgnoreList struct {
	baseDir string
	ignore  *gitignore.GitIgnore
}

func NewIgnoreList(baseDir string) *IgnoreList {
	return &IgnoreList{baseDir: baseDir}
}

func (s *IgnoreList) Load() {
	ignorePath := filepath.Join(s.baseDir, ignoreFileName)
	ignoreLines := defaultIgnoreLines

	if utils.FileExists(ignorePath) {
		rules := 0
		file, err := os.Open(ignorePath)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", ignorePath, "error", err)
		} else {
			defer file.Close()
			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				ignoreLines = append(ignoreLines, line)
				rules++
			}
			slog.Debug("loaded ignore file", "path", ignorePath, "rules", rules)
		}
	}

	s.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

// ShouldIgnore reports whether a vault-relative path is excluded from sync.
func (s *IgnoreList) ShouldIgnore(relPath string) bool {
	if s.ignore == nil {
		s.Load()
	}
	return s.ignore.MatchesPath(relPath)
}
