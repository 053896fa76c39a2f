// Package filestore keeps a plain-file copy of every submission next to the
// document store so graders can work from a directory tree.
package filestore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const logFileName = "submissions.log"

var ErrInvalidPath = errors.New("filestore: invalid path component")

// Entry is one submission as written to disk.
type Entry struct {
	UserID         string
	DisplayName    string
	SubmissionInfo string
	FileName       string
	FileContent    []byte
	Date           time.Time
}

type FileStore interface {
	Store(entry Entry) error
}

type fileStore struct {
	fs   afero.Fs
	root string
}

// NewFileStore returns a store rooted at root on fs.
func NewFileStore(fs afero.Fs, root string) FileStore {
	return &fileStore{fs: fs, root: root}
}

// NewOsFileStore is the production store backed by the real file system.
func NewOsFileStore(root string) FileStore {
	return NewFileStore(afero.NewOsFs(), root)
}

// Store appends a log line to <root>/<user>/submissions.log and writes the file
// under its base name. Directory parts of the submitted file name are dropped.
func (s *fileStore) Store(entry Entry) error {
	userDir, err := safeComponent(entry.UserID)
	if err != nil {
		return err
	}
	dir := path.Join(s.root, userDir)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create submission dir: %w", err)
	}

	if err := s.appendLog(dir, entry); err != nil {
		return err
	}

	if entry.FileName == "" {
		return nil
	}
	name, err := safeComponent(baseName(entry.FileName))
	if err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, path.Join(dir, name), entry.FileContent, 0o644); err != nil {
		return fmt.Errorf("write submission file: %w", err)
	}
	return nil
}

func (s *fileStore) appendLog(dir string, entry Entry) error {
	f, err := s.fs.OpenFile(path.Join(dir, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open submission log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{entry.Date.UTC().Format(http.TimeFormat), entry.DisplayName, entry.SubmissionInfo}); err != nil {
		return fmt.Errorf("write submission log: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush submission log: %w", err)
	}
	return nil
}

// baseName strips both slash styles since clients may send Windows paths.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func safeComponent(s string) (string, error) {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	return s, nil
}
