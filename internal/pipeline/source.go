package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kosarica/import-service/internal/parsers"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/types"
)

// openSource opens the stored file of s. A missing or unreadable file is
// structural.
func (r *Runner) openSource(ctx context.Context, s *session.ImportSession) (parsers.RowReader, error) {
	if s.FilePath == "" {
		return nil, fmt.Errorf("%w: session has no source file", ErrStructural)
	}
	ok, err := r.files.Exists(ctx, s.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check source file: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: source file %s is missing", ErrStructural, s.FileName)
	}

	reader, err := parsers.Open(r.files.Path(s.FilePath), s.FileType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStructural, err)
	}
	return reader, nil
}

// readChunk reads up to n rows. done is true once the reader is exhausted.
// A row that cannot be decoded is structural.
func readChunk(reader parsers.RowReader, n int) (rows []types.Row, done bool, err error) {
	rows = make([]types.Row, 0, n)
	for len(rows) < n {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return rows, true, nil
		}
		if err != nil {
			return rows, false, fmt.Errorf("%w: %w", ErrStructural, err)
		}
		rows = append(rows, row)
	}
	return rows, false, nil
}

// update saves fn against the session while it is still in running; any
// other status means the operator cancelled or deleted it
func (r *Runner) update(ctx context.Context, id string, running session.Status, fn func(*session.ImportSession) error) (*session.ImportSession, error) {
	s, err := r.sessions.Update(ctx, id, func(s *session.ImportSession) error {
		if s.Status != running {
			return fmt.Errorf("%w: session is %s", errStopped, s.Status)
		}
		return fn(s)
	})
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", errStopped, err)
	}
	return s, err
}
