// Package fsutil provides atomic file persistence helpers and the typed
// storage errors shared by the session, knowledge, and catch-up stores.
package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StorageOp classifies what a storage operation was doing when it failed.
type StorageOp string

const (
	OpRead  StorageOp = "read"
	OpWrite StorageOp = "write"
	OpParse StorageOp = "parse"
)

// StorageError is the typed error returned by all store I/O.
// Callers decide policy; the daemon logs and continues.
type StorageError struct {
	Op   StorageOp
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ReadErr wraps err as a read failure for path.
func ReadErr(path string, err error) error {
	return &StorageError{Op: OpRead, Path: path, Err: err}
}

// WriteErr wraps err as a write failure for path.
func WriteErr(path string, err error) error {
	return &StorageError{Op: OpWrite, Path: path, Err: err}
}

// ParseErr wraps err as a parse failure for path.
func ParseErr(path string, err error) error {
	return &StorageError{Op: OpParse, Path: path, Err: err}
}

// WriteFileAtomic writes data to path via a .tmp sibling and rename.
// Readers see either the previous snapshot or the new one, never a partial
// write. The parent directory is created if missing.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return WriteErr(path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return WriteErr(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		// Best effort: don't leave the temp file behind
		_ = os.Remove(tmp)
		return WriteErr(path, err)
	}
	return nil
}

// WriteJSONAtomic marshals v with indentation and writes it atomically.
func WriteJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return WriteErr(path, err)
	}
	return WriteFileAtomic(path, append(data, '\n'), 0644)
}

// ReadJSON unmarshals path into v. A missing file returns (false, nil) so
// callers can treat absence as "not present" rather than an error.
func ReadJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, ReadErr(path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, ParseErr(path, err)
	}
	return true, nil
}
