package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/anamitradey/OCP-RAG/internal/config"
	"github.com/anamitradey/OCP-RAG/internal/errs"
)

const (
	DefaultWindow  = 500
	DefaultOverlap = 50
)

// Splitter turns raw text into an ordered sequence of chunk strings.
// Implementations are pure and safe for concurrent use.
type Splitter interface {
	Split(text string) ([]string, error)
}

// FixedWindow emits overlapping fixed-size windows. Window and overlap
// are measured in runes, so a boundary never lands inside a multi-byte
// character. Each window starts at index*(window-overlap); the last chunk
// may be shorter than the window.
type FixedWindow struct {
	Window  int
	Overlap int
}

// NewFixedWindow validates overlap < window before any chunking can occur.
func NewFixedWindow(window, overlap int) (*FixedWindow, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", errs.ErrValidation, window)
	}
	if overlap < 0 || overlap >= window {
		return nil, fmt.Errorf("%w: overlap must be smaller than window size", errs.ErrValidation)
	}
	return &FixedWindow{Window: window, Overlap: overlap}, nil
}

func (f *FixedWindow) Split(text string) ([]string, error) {
	runes := []rune(text)
	var chunks []string
	step := f.Window - f.Overlap
	for start := 0; start < len(runes); start += step {
		end := start + f.Window
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

// Recursive splits on paragraph, line and space boundaries before falling
// back to hard cuts. Same contract as FixedWindow, different boundaries.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursive(chunkSize, chunkOverlap int) (*Recursive, error) {
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be smaller than window size", errs.ErrValidation)
	}
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}, nil
}

func (r *Recursive) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	return r.splitter.SplitText(text)
}

// FromConfig builds the configured strategy.
func FromConfig(cfg config.ChunkingConfig) (Splitter, error) {
	switch cfg.Strategy {
	case "", "fixed":
		return NewFixedWindow(cfg.Window, cfg.Overlap)
	case "recursive":
		return NewRecursive(cfg.Window, cfg.Overlap)
	default:
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", errs.ErrValidation, cfg.Strategy)
	}
}
