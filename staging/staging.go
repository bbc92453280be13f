// Package staging writes received data objects to uniquely named files and
// removes them once their group is handed off, cancelled or abandoned.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// FixedPrefix is the file prefix used when staged files are kept for inspection.
const FixedPrefix = "gcomserver"

const maxNameAttempts = 16

type Options struct {
	Dir       string // defaults to os.TempDir()
	KeepFiles bool
	Logger    *log.Logger
}

// Stager owns the staging namespace of one session.
type Stager struct {
	dir      string
	prefix   string
	reserved string // placeholder file backing prefix; empty in keep mode
	tag      string
	keep     bool
	seq      int
	log      *log.Logger
}

// New reserves a session-scoped prefix. Without keep-files an empty file is
// created under dir so concurrent sessions and other runs never share a name.
func New(opts Options) (*Stager, error) {
	dir := opts.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = tool.DefaultLogger
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create staging dir: %w", types.ErrIO, err)
	}

	s := &Stager{dir: dir, keep: opts.KeepFiles, log: logger}
	if s.keep {
		s.prefix = filepath.Join(dir, FixedPrefix)
		s.tag = tool.NewSessionID()
		return s, nil
	}

	f, err := os.CreateTemp(dir, FixedPrefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("%w: reserve staging prefix: %w", types.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w: reserve staging prefix: %w", types.ErrIO, err)
	}
	s.prefix = f.Name()
	s.reserved = f.Name()
	return s, nil
}

func (s *Stager) Prefix() string { return s.prefix }

func (s *Stager) KeepFiles() bool { return s.keep }

// NewStagingName returns the next unused name derived from prefix.
func (s *Stager) NewStagingName(prefix string) string {
	s.seq++
	if s.tag != "" {
		return fmt.Sprintf("%s_%s_%04d", prefix, s.tag, s.seq)
	}
	return fmt.Sprintf("%s_%04d", prefix, s.seq)
}

// Persist writes raw under a fresh name and returns the path. A failed write
// leaves nothing behind.
func (s *Stager) Persist(raw []byte) (string, error) {
	var (
		f    *os.File
		path string
		err  error
	)
	for range maxNameAttempts {
		path = s.NewStagingName(s.prefix)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: create staged file: %w", types.ErrIO, err)
	}

	_, werr := f.Write(raw)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.log.Warnf("[Staging] Failed to remove partial staged file %s: %v", path, rmErr)
		}
		return "", fmt.Errorf("%w: write staged file %s: %w", types.ErrIO, path, errors.Join(werr, cerr))
	}
	return path, nil
}

// Remove deletes staged files. Missing files are ignored, and nothing is
// removed in keep-files mode.
func (s *Stager) Remove(paths ...string) error {
	if s.keep {
		if len(paths) > 0 {
			s.log.Debugf("[Staging] Keeping %d staged files", len(paths))
		}
		return nil
	}
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the reserved prefix file. It is safe to call more than once.
func (s *Stager) Close() error {
	if s.reserved == "" {
		return nil
	}
	path := s.reserved
	s.reserved = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
