// Package attachment keeps uploaded proof files on local disk.
// Writes go to a temp file, are fsynced and then atomically renamed, so a
// reference handed out by Put always points at a complete file.
package attachment

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge         = errors.New("attachment exceeds size limit")
	ErrInvalidRef       = errors.New("invalid attachment reference")
	ErrNotFound         = errors.New("attachment not found")
	ErrInvalidNamespace = errors.New("invalid attachment namespace")
)

const (
	defaultNamePrefix   = "file"
	defaultPublicPrefix = "/uploads"
	maxNamespaceLength  = 128
	maxExtLength        = 10
)

// Object describes a stored file.
type Object struct {
	// Ref is the public reference, e.g. /uploads/<namespace>/<name>.
	Ref      string
	Path     string
	Size     int64
	Checksum string
}

type Store struct {
	dir          string
	publicPrefix string
	namePrefix   string
	now          func() time.Time
}

type Option func(*Store)

// WithPublicPrefix sets the URL prefix references are built under.
func WithPublicPrefix(prefix string) Option {
	return func(s *Store) {
		s.publicPrefix = "/" + strings.Trim(prefix, "/")
	}
}

// WithNamePrefix sets the leading part of generated file names.
func WithNamePrefix(prefix string) Option {
	return func(s *Store) {
		if p := sanitize(prefix, ""); p != "" {
			s.namePrefix = p
		}
	}
}

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates the root directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}

	s := &Store{
		dir:          dir,
		publicPrefix: defaultPublicPrefix,
		namePrefix:   defaultNamePrefix,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) PublicPrefix() string {
	return s.publicPrefix
}

// Put streams r into <dir>/<namespace>/<generated name>. At most limit bytes
// are accepted; a longer stream fails with ErrTooLarge and leaves nothing
// behind. A limit <= 0 disables the check.
func (s *Store) Put(ctx context.Context, namespace, filename string, r io.Reader, limit int64) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ns, err := namespaceDir(namespace)
	if err != nil {
		return nil, err
	}

	nsDir := filepath.Join(s.dir, ns)
	if err := os.MkdirAll(nsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create namespace dir: %w", err)
	}

	name := s.generateName(filename)
	fullPath := filepath.Join(nsDir, name)
	tmpPath := fullPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	hasher := sha256.New()

	size, err := io.Copy(f, io.TeeReader(src, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write attachment: %w", err)
	}
	if limit > 0 && size > limit {
		f.Close()
		os.Remove(tmpPath)
		return nil, ErrTooLarge
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("fsync attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close attachment: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("rename attachment: %w", err)
	}

	return &Object{
		Ref:      path.Join(s.publicPrefix, ns, name),
		Path:     fullPath,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open returns the stored file. The caller must close it.
func (s *Store) Open(ref string) (*os.File, error) {
	p, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("open attachment %s: %w", ref, err)
	}
	return f, nil
}

func (s *Store) Exists(ref string) bool {
	p, err := s.resolve(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Delete removes the file behind ref. Deleting a missing file is not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete attachment %s: %w", ref, err)
	}
	return nil
}

// resolve maps a public reference back onto a path inside dir.
func (s *Store) resolve(ref string) (string, error) {
	prefix := s.publicPrefix + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	rel := strings.TrimPrefix(ref, prefix)
	if rel == "" || path.Clean(rel) != rel || strings.HasPrefix(rel, "..") || strings.Contains(rel, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.dir, parts[0], parts[1]), nil
}

// generateName builds <prefix>-<unixmillis>-<uuid8><ext>.
func (s *Store) generateName(original string) string {
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%d-%s%s", s.namePrefix, s.now().UnixMilli(), uid, extension(original))
}

// extension returns the lowercased extension of name, or "" when it is not
// a short alphanumeric suffix.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > maxExtLength {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

var namespaceEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// namespaceDir maps a submitter identity onto its directory name, one
// directory per identity. Identities made only of letters, digits, '-' and
// '_' are used as they are; any other identity is base32 encoded behind a
// '~', which plain names never contain.
func namespaceDir(identity string) (string, error) {
	if identity == "" || len(identity) > maxNamespaceLength {
		return "", fmt.Errorf("%w: length %d", ErrInvalidNamespace, len(identity))
	}
	if sanitize(identity, "") == identity {
		return identity, nil
	}
	return "~" + strings.ToLower(namespaceEncoding.EncodeToString([]byte(identity))), nil
}

// sanitize keeps letters, digits, '-' and '_'.
func sanitize(s, fallback string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
