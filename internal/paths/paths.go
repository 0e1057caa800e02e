// Package paths resolves every filesystem location the tool touches: the
// global devlog home, per-project memory roots, and the pending-project
// registry. No other package constructs these paths directly.
package paths

import (
	"os"
	"path/filepath"
)

// EnvHome overrides the global directory location when set.
const EnvHome = "DEVLOG_HOME"

// GlobalDir returns the global devlog home, honoring DEVLOG_HOME and
// defaulting to ~/.devlog.
func GlobalDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Last resort: relative to cwd. Callers that need the global dir to
		// exist will surface the failure on first write.
		return ".devlog"
	}
	return filepath.Join(home, ".devlog")
}

// GlobalConfigFile is the JSON config read by the viper layer.
func GlobalConfigFile() string {
	return filepath.Join(GlobalDir(), "config.json")
}

// DaemonStatusFile holds the daemon's persisted status snapshot.
func DaemonStatusFile() string {
	return filepath.Join(GlobalDir(), "daemon.status")
}

// DaemonPIDFile holds the running daemon's pid.
func DaemonPIDFile() string {
	return filepath.Join(GlobalDir(), "daemon.pid")
}

// DaemonLockFile is the flock target preventing duplicate daemons.
func DaemonLockFile() string {
	return filepath.Join(GlobalDir(), "daemon.lock")
}

// DaemonLogFile is the rotated daemon log.
func DaemonLogFile() string {
	return filepath.Join(GlobalDir(), "daemon.log")
}

// PendingProjectsFile is the registry hooks append to and the daemon drains.
func PendingProjectsFile() string {
	return filepath.Join(GlobalDir(), "pending-projects.json")
}

// ExtractionMarkerFile is the cross-process flag the consolidator holds while
// an LLM call is in flight. Hooks check it to avoid feeding the daemon's own
// extraction turns back into a session buffer.
func ExtractionMarkerFile() string {
	return filepath.Join(os.TempDir(), "devlog-extraction.marker")
}

// MemoryRoot returns <project>/.memory.
func MemoryRoot(projectPath string) string {
	return filepath.Join(projectPath, ".memory")
}

// KnowledgeDir returns <project>/.memory/knowledge.
func KnowledgeDir(projectPath string) string {
	return filepath.Join(MemoryRoot(projectPath), "knowledge")
}

// WorkingDir returns <project>/.memory/working.
func WorkingDir(projectPath string) string {
	return filepath.Join(MemoryRoot(projectPath), "working")
}

// IndexFile returns the auto-generated knowledge table of contents.
func IndexFile(projectPath string) string {
	return filepath.Join(MemoryRoot(projectPath), "index.md")
}

// EnsureGlobalDir creates the global home if missing.
func EnsureGlobalDir() error {
	return os.MkdirAll(GlobalDir(), 0750)
}

// EnsureProjectDirs creates knowledge/ and working/ under the project memory
// root. Called lazily on the first per-project write.
func EnsureProjectDirs(projectPath string) error {
	if err := os.MkdirAll(KnowledgeDir(projectPath), 0750); err != nil {
		return err
	}
	return os.MkdirAll(WorkingDir(projectPath), 0750)
}

// HasMemory reports whether the project has an initialized working dir.
// The daemon only tracks projects that pass this check.
func HasMemory(projectPath string) bool {
	info, err := os.Stat(WorkingDir(projectPath))
	return err == nil && info.IsDir()
}
