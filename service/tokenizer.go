package service

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/config"
	"github.com/tieubaoca/email-summarizer-be/types"
)

const (
	// Hard cap on chunk size regardless of how large the context window is.
	chunkSizeHardCap = 8192
	// Approximate characters per token when no exact tokenizer is available.
	heuristicCharsPerToken = 4

	encodingName = "cl100k_base"
)

// ChunkParams computes the token-budgeted chunk size and overlap for a model.
// Unknown models fall back to the configured RAG token maximum. A
// non-positive chunk size is a configuration error, never a silent loop.
func ChunkParams(cfg *config.Config, modelName string) (chunkSize, overlap int, err error) {
	ctxWindow := cfg.ContextWindow(modelName)
	chunkSize = min(chunkSizeHardCap, int(float64(ctxWindow)*cfg.ChunkSizeRatio))
	if chunkSize <= 0 {
		return 0, 0, fmt.Errorf("computed chunk size %d for model %q (context window %d, ratio %f); check chunk_size_ratio",
			chunkSize, modelName, ctxWindow, cfg.ChunkSizeRatio)
	}
	overlap = min(cfg.DefaultChunkOverlap, max(32, chunkSize/10))
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return chunkSize, overlap, nil
}

// Splitter slices text into token-bounded chunks with overlap. It uses the
// exact cl100k_base tokenizer when available and a characters-per-token
// heuristic otherwise.
type Splitter struct {
	enc       *tiktoken.Tiktoken // nil means heuristic fallback
	chunkSize int                // tokens
	overlap   int                // tokens
}

// NewSplitter builds a splitter sized for the given model. Loading the
// tokenizer can fail (missing encoding data); that degrades to the heuristic
// with a warning, it does not fail the request.
func NewSplitter(cfg *config.Config, modelName string) (*Splitter, error) {
	chunkSize, overlap, err := ChunkParams(cfg, modelName)
	if err != nil {
		return nil, err
	}

	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		log.Warn().Err(err).
			Str("model", modelName).
			Msgf("exact tokenizer unavailable, falling back to %d chars per token", heuristicCharsPerToken)
		enc = nil
	}

	return &Splitter{enc: enc, chunkSize: chunkSize, overlap: overlap}, nil
}

func (s *Splitter) ChunkSize() int { return s.chunkSize }
func (s *Splitter) Overlap() int   { return s.overlap }

// CountTokens estimates the token count of text: exact when the tokenizer is
// loaded, ceil(len/4) otherwise.
func (s *Splitter) CountTokens(text string) int {
	if s.enc != nil {
		return len(s.enc.Encode(text, nil, nil))
	}
	return (len(text) + heuristicCharsPerToken - 1) / heuristicCharsPerToken
}

// Split cuts text into chunks of at most chunkSize tokens where consecutive
// chunks share overlap tokens. The input is never mutated.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if s.enc != nil {
		return s.splitExact(text)
	}
	return s.splitHeuristic(text)
}

// SplitDocuments splits each document's content, carrying metadata over to
// every derived chunk.
func (s *Splitter) SplitDocuments(docs []types.Document) []types.Document {
	var out []types.Document
	for _, doc := range docs {
		for _, chunk := range s.Split(doc.Content) {
			out = append(out, types.Document{Content: chunk, Metadata: doc.Metadata})
		}
	}
	return out
}

func (s *Splitter) splitExact(text string) []string {
	tokens := s.enc.Encode(text, nil, nil)
	if len(tokens) <= s.chunkSize {
		return []string{text}
	}

	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+s.chunkSize, len(tokens))
		chunk := s.enc.Decode(tokens[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// splitHeuristic works on characters, backtracking to a sentence end (or a
// word boundary) so chunks don't cut words in half.
func (s *Splitter) splitHeuristic(text string) []string {
	maxChars := s.chunkSize * heuristicCharsPerToken
	overlapChars := s.overlap * heuristicCharsPerToken
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	currentPos := 0
	for currentPos < len(text) {
		chunkEnd := currentPos + maxChars
		if chunkEnd >= len(text) {
			if chunk := strings.TrimSpace(text[currentPos:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Prefer a sentence end, then a word boundary
		boundary := chunkEnd
		for i := chunkEnd; i > currentPos; i-- {
			if text[i] == '.' || text[i] == '?' || text[i] == '!' {
				boundary = i + 1
				break
			}
		}
		if boundary == chunkEnd {
			for i := chunkEnd; i > currentPos; i-- {
				if text[i] == ' ' {
					boundary = i
					break
				}
			}
		}

		if chunk := strings.TrimSpace(text[currentPos:boundary]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := boundary - overlapChars
		if next <= currentPos {
			next = boundary
		}
		currentPos = next
	}
	return chunks
}
