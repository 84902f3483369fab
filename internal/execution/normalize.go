package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/rainn/internal/instances"
	"github.com/JaimeStill/rainn/pkg/decode"
)

// Input errors. Both are raised before any model call.
var (
	ErrEmptyInput          = errors.New("no text content extracted from input")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

const decodeConcurrency = 4

// File is one uploaded input. Path is where the bytes live; Name is the
// original file name shown in headers and errors.
type File struct {
	Path string
	Name string
}

func (f File) displayName() string {
	if f.Name != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

// Normalizer turns uploaded files into the stage-0 text artifact.
type Normalizer struct {
	read   func(path string) (decode.Document, error)
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer backed by pkg/decode.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		read:   decode.Read,
		logger: logger.With("system", "normalizer"),
	}
}

// Normalize decodes files concurrently, joins their text in upload order,
// and writes the result to the run folder's input artifact. With more than
// one file each text is prefixed by a "FILE i: name" header. When several
// files fail, the error of the earliest one is returned.
func (n *Normalizer) Normalize(ctx context.Context, files []File, runFolder string) (string, string, error) {
	if len(files) == 0 {
		return "", "", ErrEmptyInput
	}

	texts := make([]string, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(decodeConcurrency)

	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			texts[i], errs[i] = n.readFile(f)
			return nil
		})
	}
	g.Wait()

	// Report the first failing file in upload order.
	for _, err := range errs {
		if err != nil {
			return "", "", err
		}
	}

	text := joinInputs(files, texts)

	path := filepath.Join(runFolder, instances.InputFile)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", "", fmt.Errorf("write input artifact: %w", err)
	}

	n.logger.DebugContext(ctx, "input normalized", "files", len(files), "chars", len(text))
	return text, path, nil
}

func (n *Normalizer) readFile(f File) (string, error) {
	name := f.displayName()

	if !decode.Supported(f.Path) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, name)
	}

	doc, err := n.read(f.Path)
	if err != nil {
		if errors.Is(err, decode.ErrUnsupported) {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, name)
		}
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	text := NormalizeText(doc.Text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyInput, name)
	}
	return text, nil
}

// NormalizeText converts CRLF and CR line endings to LF and trims
// surrounding whitespace.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

func joinInputs(files []File, texts []string) string {
	if len(texts) == 1 {
		return texts[0]
	}

	blocks := make([]string, len(texts))
	for i, text := range texts {
		blocks[i] = fmt.Sprintf("FILE %d: %s\n%s", i+1, files[i].displayName(), text)
	}
	return strings.Join(blocks, "\n\n")
}
