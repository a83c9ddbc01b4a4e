package churnscope

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	everrors "github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/validation"
)

// DefaultChunkSize is the chunk length SliceChunkReader uses when given
// a non-positive size.
const DefaultChunkSize = 4096

// ChunkReader is a source of prediction chunks, e.g. the row groups of a
// large scoring output.
type ChunkReader interface {
	// ReadChunk reads the next chunk. io.EOF ends the stream.
	ReadChunk() ([]LabeledPrediction, error)
	// HasNext returns true if there are more chunks to read
	HasNext() bool
	// Close closes the chunk reader and releases resources
	Close() error
}

// StreamingEvaluator accumulates confusion counts at fixed cutoffs over
// a stream of chunks, so the full prediction set never has to be held in
// memory. ROC and Youden need every score and are not available here.
//
// It is safe for concurrent use; chunks may be added from several
// goroutines.
type StreamingEvaluator struct {
	mu      sync.Mutex
	cutoffs []float64
	counts  []ConfusionCounts
	rows    int
	closed  bool
}

// NewStreamingEvaluator creates an evaluator for the given cutoffs. The
// results are reported in ascending cutoff order; duplicates are merged.
func NewStreamingEvaluator(cutoffs ...float64) (*StreamingEvaluator, error) {
	if len(cutoffs) == 0 {
		return nil, everrors.NewInvalidInputError("NewStreamingEvaluator", "at least one cutoff is required")
	}
	for _, c := range cutoffs {
		if err := validation.ValidateCutoff(c, "NewStreamingEvaluator"); err != nil {
			return nil, err
		}
	}

	sorted := append([]float64(nil), cutoffs...)
	sort.Float64s(sorted)
	uniq := sorted[:1]
	for _, c := range sorted[1:] {
		if c != uniq[len(uniq)-1] {
			uniq = append(uniq, c)
		}
	}

	return &StreamingEvaluator{
		cutoffs: uniq,
		counts:  make([]ConfusionCounts, len(uniq)),
	}, nil
}

// Add tallies one chunk. Empty chunks are ignored. A chunk with a NaN
// score is rejected as a whole; infinite scores are tallied like any other.
func (se *StreamingEvaluator) Add(chunk []LabeledPrediction) error {
	if len(chunk) == 0 {
		return nil
	}
	scores := make([]float64, len(chunk))
	for i, p := range chunk {
		scores[i] = p.Score
	}
	if err := validation.ValidateFinite(scores, "score", "StreamingEvaluator.Add"); err != nil {
		return err
	}

	partial := make([]ConfusionCounts, len(se.cutoffs))
	for i, c := range se.cutoffs {
		counts, err := evaluate.Confusion(chunk, c)
		if err != nil {
			return err
		}
		partial[i] = counts
	}

	se.mu.Lock()
	defer se.mu.Unlock()
	if se.closed {
		return errors.New("streaming evaluator is closed")
	}
	for i := range se.counts {
		se.counts[i] = se.counts[i].Add(partial[i])
	}
	se.rows += len(chunk)
	return nil
}

// ProcessStreaming drains reader into the evaluator and closes it.
func (se *StreamingEvaluator) ProcessStreaming(reader ChunkReader) (err error) {
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close chunk reader: %w", closeErr)
		}
	}()

	for chunkIdx := 0; reader.HasNext(); chunkIdx++ {
		chunk, err := reader.ReadChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read chunk %d: %w", chunkIdx, err)
		}
		if err := se.Add(chunk); err != nil {
			return fmt.Errorf("failed to process chunk %d: %w", chunkIdx, err)
		}
	}
	return nil
}

// Rows returns how many predictions have been tallied.
func (se *StreamingEvaluator) Rows() int {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.rows
}

// Results returns the metrics at every cutoff. It fails with an
// EmptyInput error if nothing was added.
func (se *StreamingEvaluator) Results() ([]CutoffMetrics, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	if se.rows == 0 {
		return nil, everrors.NewEmptyInputError("StreamingEvaluator.Results")
	}
	out := make([]CutoffMetrics, len(se.cutoffs))
	for i, c := range se.cutoffs {
		out[i] = evaluate.Summarize(c, se.counts[i])
	}
	return out, nil
}

// Close stops the evaluator from accepting chunks. Results stay readable.
func (se *StreamingEvaluator) Close() error {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.closed = true
	return nil
}

// SliceChunkReader serves an in-memory slice in fixed-size chunks.
type SliceChunkReader struct {
	data []LabeledPrediction
	size int
	pos  int
}

// NewSliceChunkReader creates a reader over data. size <= 0 uses
// DefaultChunkSize.
func NewSliceChunkReader(data []LabeledPrediction, size int) *SliceChunkReader {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &SliceChunkReader{data: data, size: size}
}

// ReadChunk implements ChunkReader.
func (r *SliceChunkReader) ReadChunk() ([]LabeledPrediction, error) {
	if r.pos >= len(r.data) {
		return nil, io.EOF
	}
	end := min(r.pos+r.size, len(r.data))
	chunk := r.data[r.pos:end]
	r.pos = end
	return chunk, nil
}

// HasNext implements ChunkReader.
func (r *SliceChunkReader) HasNext() bool {
	return r.pos < len(r.data)
}

// Close implements ChunkReader.
func (r *SliceChunkReader) Close() error {
	return nil
}
