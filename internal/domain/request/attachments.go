package request

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAttachmentNotFound = errors.New("attachment not found")

// AttachmentStore reads uploaded attachment metadata. Uploads themselves are
// handled by the files transport; the leave flow only validates what is
// already stored.
type AttachmentStore struct {
	DB *pgxpool.Pool
}

func NewAttachmentStore(db *pgxpool.Pool) *AttachmentStore {
	return &AttachmentStore{DB: db}
}

func (s *AttachmentStore) Meta(ctx context.Context, attachmentID string) (*AttachmentMeta, error) {
	var m AttachmentMeta
	err := s.DB.QueryRow(ctx, `
    SELECT id, file_name, content_type, size_bytes
    FROM attachments
    WHERE id = $1
  `, attachmentID).Scan(&m.ID, &m.FileName, &m.ContentType, &m.SizeBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Save stores metadata plus content for a newly uploaded attachment and
// returns its generated ID.
func (s *AttachmentStore) Save(ctx context.Context, fileName, contentType string, content []byte) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO attachments (file_name, content_type, size_bytes, content)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, fileName, contentType, int64(len(content)), content).Scan(&id)
	return id, err
}

// Content returns the raw bytes for download.
func (s *AttachmentStore) Content(ctx context.Context, attachmentID string) (*AttachmentMeta, []byte, error) {
	var m AttachmentMeta
	var content []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, file_name, content_type, size_bytes, content
    FROM attachments
    WHERE id = $1
  `, attachmentID).Scan(&m.ID, &m.FileName, &m.ContentType, &m.SizeBytes, &content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &m, content, nil
}
