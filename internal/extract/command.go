package extract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-intake/internal/model"
)

// CommandExtractor runs an external program with the document path as its
// final argument and reads the invoice JSON from stdout.
type CommandExtractor struct {
	binPath string
	args    []string
}

// NewCommandExtractor parses command into a binary and leading arguments.
// If command is empty, "invoice-extractor" is used.
func NewCommandExtractor(command string) *CommandExtractor {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{"invoice-extractor"}
	}
	return &CommandExtractor{binPath: fields[0], args: fields[1:]}
}

// Extract runs the command and decodes its stdout.
func (c *CommandExtractor) Extract(ctx context.Context, path string) (*model.Invoice, error) {
	args := append(append([]string{}, c.args...), path)
	cmd := exec.CommandContext(ctx, c.binPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "extract: %s failed for %s: %s", c.binPath, path, strings.TrimSpace(stderr.String()))
	}

	return Decode(stdout.Bytes())
}
