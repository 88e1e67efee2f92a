// Package intake validates uploaded documents and stages them in a working
// directory under a name that is independent of the client-supplied one.
package intake

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// WorkingPrefix starts every staged file name.
const WorkingPrefix = "temp_invoice_"

// DefaultAllowedExtensions lists the accepted document types.
var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "pdf"}

// maxNameAttempts bounds how many fresh names are tried when a staged name
// already exists.
const maxNameAttempts = 5

// Gateway accepts uploads into a working directory.
type Gateway struct {
	dir     string
	allowed map[string]bool
}

// NewGateway creates the working directory if needed and returns a Gateway
// accepting the given extensions (DefaultAllowedExtensions when empty).
func NewGateway(dir string, allowed ...string) (*Gateway, error) {
	if dir == "" {
		return nil, eris.New("intake: working directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "intake: create working dir %s", dir)
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	set := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Gateway{dir: dir, allowed: set}, nil
}

// Dir returns the working directory.
func (g *Gateway) Dir() string {
	return g.dir
}

// Validate checks the client filename and returns its normalized extension.
func (g *Gateway) Validate(filename string) (string, error) {
	if filename == "" {
		return "", ErrNoFilename
	}
	ext, ok := Extension(filename)
	if !ok || !g.allowed[ext] {
		return "", ErrExtensionNotAllowed
	}
	return ext, nil
}

// Accept validates filename, then copies r into a freshly named working file.
// The caller owns the returned Document and must Release it.
func (g *Gateway) Accept(filename string, r io.Reader) (*Document, error) {
	ext, err := g.Validate(filename)
	if err != nil {
		return nil, err
	}

	f, name, err := g.create(ext)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		OriginalName: filename,
		Name:         name,
		Ext:          ext,
		Path:         filepath.Join(g.dir, name),
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close() //nolint:errcheck
		doc.Release()
		return nil, eris.Wrapf(err, "intake: write %s", name)
	}
	if err := f.Close(); err != nil {
		doc.Release()
		return nil, eris.Wrapf(err, "intake: close %s", name)
	}

	return doc, nil
}

// create opens a new working file exclusively, drawing a new random name if
// the previous one is taken.
func (g *Gateway) create(ext string) (*os.File, string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name, err := WorkingName(ext)
		if err != nil {
			return nil, "", err
		}
		f, err := os.OpenFile(filepath.Join(g.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", eris.Wrapf(err, "intake: create %s", name)
		}
		zap.L().Warn("intake: working name collision", zap.String("name", name))
	}
	return nil, "", eris.New("intake: could not allocate a unique working file")
}

// WorkingName returns temp_invoice_<16 hex chars>.<ext> using 64 random bits.
func WorkingName(ext string) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", eris.Wrap(err, "intake: random name")
	}
	return WorkingPrefix + hex.EncodeToString(b[:]) + "." + ext, nil
}

// Extension returns the lowercased text after the last dot of filename.
func Extension(filename string) (string, bool) {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return "", false
	}
	return strings.ToLower(base[i+1:]), true
}

// Document is one staged upload. It is owned by a single request.
type Document struct {
	OriginalName string
	Name         string
	Ext          string
	Path         string

	once sync.Once
}

// Release removes the working file. It runs at most once; later calls and an
// already missing file are no-ops.
func (d *Document) Release() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		err := os.Remove(d.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			zap.L().Error("intake: remove working file",
				zap.String("path", d.Path),
				zap.Error(err),
			)
		}
	})
}
