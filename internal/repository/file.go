package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/model"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

// FileRepository tracks stored uploads by owner so they can be cleaned up
// with the agent or property they belong to.
type FileRepository interface {
	Create(file *model.File) error
	ByID(id string) (*model.File, error)
	FileByType(ownerType, ownerID, fileType string) (*model.File, error)
	Files(ownerType, ownerID string) ([]*model.File, error)
	FileByURL(ownerType, ownerID, url string) (*model.File, error)
	AllAgentFiles(agentID string) ([]*model.File, error)
	Delete(id string) error
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(f *model.File) error {
	_, err := r.db.Exec(`
		INSERT INTO files (id, agent_id, owner_type, owner_id, type, filename, original_name,
			mime_type, size, storage_path, url, public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		f.ID, f.AgentID, f.OwnerType, f.OwnerID, f.Type, f.Filename, f.OriginalName,
		f.MimeType, f.Size, f.StoragePath, f.URL, f.Public, f.CreatedAt,
	)
	return err
}

func (r *fileRepository) ByID(id string) (*model.File, error) {
	return r.one(`SELECT * FROM files WHERE id = $1`, id)
}

// FileByType returns the newest file of fileType for the owner.
func (r *fileRepository) FileByType(ownerType, ownerID, fileType string) (*model.File, error) {
	return r.one(`SELECT * FROM files WHERE owner_type = $1 AND owner_id = $2 AND type = $3 ORDER BY created_at DESC LIMIT 1`,
		ownerType, ownerID, fileType)
}

func (r *fileRepository) FileByURL(ownerType, ownerID, url string) (*model.File, error) {
	return r.one(`SELECT * FROM files WHERE owner_type = $1 AND owner_id = $2 AND url = $3 LIMIT 1`, ownerType, ownerID, url)
}

func (r *fileRepository) Files(ownerType, ownerID string) ([]*model.File, error) {
	return r.many(`SELECT * FROM files WHERE owner_type = $1 AND owner_id = $2 ORDER BY created_at`, ownerType, ownerID)
}

func (r *fileRepository) AllAgentFiles(agentID string) ([]*model.File, error) {
	return r.many(`SELECT * FROM files WHERE agent_id = $1 ORDER BY created_at DESC`, agentID)
}

func (r *fileRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM files WHERE id = $1`, id)
	return err
}

func (r *fileRepository) one(query string, args ...any) (*model.File, error) {
	f := &model.File{}
	err := r.db.Get(f, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *fileRepository) many(query string, args ...any) ([]*model.File, error) {
	files := []*model.File{}
	if err := r.db.Select(&files, query, args...); err != nil {
		return nil, err
	}
	return files, nil
}
