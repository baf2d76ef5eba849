package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/storage"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/types"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds Options.MaxFileSize
	ErrFileTooLarge = errors.New("file exceeds maximum import size")
	// ErrUnsupportedFile is returned for uploads whose extension is not csv, xlsx or xls
	ErrUnsupportedFile = errors.New("unsupported import file type")
	// ErrInvalidMapping is returned when a column mapping names unknown fields or columns
	ErrInvalidMapping = errors.New("invalid column mapping")
)

// IntakeRequest describes one uploaded file
type IntakeRequest struct {
	UserID   string
	FileName string
	Size     int64
	Body     io.Reader
	// Config is optional; omitted fields take their defaults
	Config *session.ImportConfig
	// Mapping is optional; when set the DryRun follows Analyze without waiting
	Mapping map[int]string
}

// Intake validates the request, stores the file and creates a session in
// initializing, then queues Analyze. Invalid configuration is rejected
// before the file is read.
func (r *Runner) Intake(ctx context.Context, req IntakeRequest) (*session.ImportSession, error) {
	cfg := session.DefaultImportConfig(r.opts.DefaultChunkSize)
	if req.Config != nil {
		cfg = req.Config.WithDefaults(r.opts.DefaultChunkSize)
	}
	if err := cfg.Validate(r.opts.MinChunkSize, r.opts.MaxChunkSize); err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", session.ErrInvalidConfig)
	}

	fileType, ok := types.FileTypeFromName(req.FileName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, req.FileName)
	}
	if req.Size > r.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrFileTooLarge, req.Size, r.opts.MaxFileSize)
	}
	if len(req.Mapping) > 0 {
		if err := ValidateMapping(req.Mapping, -1); err != nil {
			return nil, err
		}
	}

	s := session.New(req.UserID, cfg)
	s.FileName = req.FileName
	s.FileType = fileType
	s.Mapping = req.Mapping

	key := storage.BuildSourceKey(req.UserID, s.ID, s.CreatedAt, req.FileName)
	info, err := r.files.PutStream(ctx, key, req.Body, r.opts.MaxFileSize, &storage.Metadata{
		OriginalName: req.FileName,
		SessionID:    s.ID,
		UploadedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, r.opts.MaxFileSize)
		}
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	s.FilePath = info.Key
	s.FileSize = info.Size
	s.FileHash = info.Checksum

	if err := r.sessions.Create(ctx, s); err != nil {
		_ = r.files.Delete(ctx, key)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := r.enqueue(ctx, taskqueue.TaskTypeAnalyze, s.ID); err != nil {
		r.fail(ctx, s.ID, StageIntake, err)
		return nil, err
	}

	r.logger.Info().
		Str("session_id", s.ID).
		Str("user_id", s.UserID).
		Str("file", s.FileName).
		Int64("bytes", s.FileSize).
		Msg("Import session created")
	return s, nil
}
