package source

import (
	"context"
	"os/exec"
	"strings"

	"github.com/matzehuels/nodestore/pkg/errors"
)

// Extractor unpacks an archive into a directory, dropping the single
// wrapping directory packaging tools put around package contents.
type Extractor interface {
	Extract(ctx context.Context, archive, dir string) error
}

// TarExtractor shells out to tar.
type TarExtractor struct {
	// Command is the tar binary to run. Empty means "tar" from PATH.
	Command string
}

// Extract implements [Extractor]. Archives ending in ".tar" are read
// uncompressed; everything else is assumed to be gzipped.
func (t TarExtractor) Extract(ctx context.Context, archive, dir string) error {
	command := t.Command
	if command == "" {
		command = "tar"
	}
	flags := "-xzf"
	if strings.HasSuffix(archive, ".tar") {
		flags = "-xf"
	}

	cmd := exec.CommandContext(ctx, command, flags, archive, "-C", dir, "--strip-components=1")
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = "tar failed"
		}
		return errors.Wrap(errors.ErrCodeExtractFailed, err, "extract %s: %s", archive, msg)
	}
	return nil
}

var _ Extractor = TarExtractor{}
