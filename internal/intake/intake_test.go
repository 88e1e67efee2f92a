package intake

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workingNameRe = regexp.MustCompile(`^temp_invoice_[0-9a-f]{16}\.(png|jpg|jpeg|gif|pdf)$`)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := NewGateway(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return g
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewGateway_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	g, err := NewGateway(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, g.Dir())
	assert.DirExists(t, dir)
}

func TestNewGateway_RequiresDir(t *testing.T) {
	_, err := NewGateway("")
	require.Error(t, err)
}

func TestAccept_AllowedExtensions(t *testing.T) {
	g := newTestGateway(t)

	for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "d.gif", "invoice1.pdf", "SCAN.PDF", "photo.JpG"} {
		t.Run(name, func(t *testing.T) {
			doc, err := g.Accept(name, strings.NewReader("content"))
			require.NoError(t, err)
			defer doc.Release()

			assert.Regexp(t, workingNameRe, doc.Name)
			assert.Equal(t, name, doc.OriginalName)
			assert.Equal(t, strings.ToLower(filepath.Ext(name)[1:]), doc.Ext)
			assert.Equal(t, filepath.Join(g.Dir(), doc.Name), doc.Path)

			data, err := os.ReadFile(doc.Path)
			require.NoError(t, err)
			assert.Equal(t, "content", string(data))
		})
	}
}

func TestAccept_RejectsDisallowedExtension(t *testing.T) {
	g := newTestGateway(t)

	for _, name := range []string{"invoice.txt", "invoice.exe", "invoice.pdf.zip", "noext", "trailingdot.", "archive.tar.gz"} {
		t.Run(name, func(t *testing.T) {
			doc, err := g.Accept(name, strings.NewReader("content"))
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrExtensionNotAllowed))
			assert.True(t, IsValidation(err))
			assert.Empty(t, dirEntries(t, g.Dir()), "no working file may persist")
		})
	}
}

func TestAccept_EmptyFilename(t *testing.T) {
	g := newTestGateway(t)

	_, err := g.Accept("", strings.NewReader("content"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFilename))
	assert.Equal(t, "No file selected", err.Error())
	assert.Empty(t, dirEntries(t, g.Dir()))
}

func TestAccept_NameIndependentOfClient(t *testing.T) {
	g := newTestGateway(t)

	doc, err := g.Accept("../../etc/passwd.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	defer doc.Release()

	assert.Equal(t, g.Dir(), filepath.Dir(doc.Path))
	assert.NotContains(t, doc.Name, "passwd")
	assert.Regexp(t, workingNameRe, doc.Name)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestAccept_CopyFailureCleansUp(t *testing.T) {
	g := newTestGateway(t)

	doc, err := g.Accept("invoice.pdf", failingReader{})
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Contains(t, err.Error(), "intake: write")
	assert.Empty(t, dirEntries(t, g.Dir()))
}

func TestRelease_Idempotent(t *testing.T) {
	g := newTestGateway(t)

	doc, err := g.Accept("invoice.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.FileExists(t, doc.Path)

	doc.Release()
	assert.NoFileExists(t, doc.Path)

	// Second release and an externally removed file are both tolerated.
	doc.Release()
	assert.Empty(t, dirEntries(t, g.Dir()))
}

func TestRelease_AlreadyAbsent(t *testing.T) {
	g := newTestGateway(t)

	doc, err := g.Accept("invoice.png", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(doc.Path))

	assert.NotPanics(t, doc.Release)
}

func TestRelease_Nil(t *testing.T) {
	var doc *Document
	assert.NotPanics(t, doc.Release)
}

func TestWorkingName_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name, err := WorkingName("pdf")
		require.NoError(t, err)
		assert.Regexp(t, workingNameRe, name)
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"invoice.pdf", "pdf", true},
		{"INVOICE.PNG", "png", true},
		{"a.b.jpeg", "jpeg", true},
		{`C:\scans\bill.GIF`, "gif", true},
		{"noext", "", false},
		{"dot.", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Extension(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewGateway_CustomExtensions(t *testing.T) {
	g, err := NewGateway(t.TempDir(), ".TIFF", "pdf")
	require.NoError(t, err)

	_, err = g.Validate("scan.tiff")
	assert.NoError(t, err)
	_, err = g.Validate("scan.png")
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
}
