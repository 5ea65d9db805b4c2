package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/storage"
)

type FileService struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
}

func NewFileService(fileRepo repository.FileRepository, storage storage.Storage) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		storage:  storage,
	}
}

// UploadInput describes one object to store. Validation (type, size, content)
// is done by the caller before calling Upload.
type UploadInput struct {
	AgentID      string
	OwnerType    string
	OwnerID      string
	FileType     string
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
}

// Upload stores a file and creates a database record
func (s *FileService) Upload(in UploadInput) (*model.File, error) {
	ext := strings.ToLower(filepath.Ext(in.OriginalName))
	filename := uuid.New().String() + ext

	// agents/<id>/logos/<uuid>.png, properties/<id>/photos/<uuid>.jpg
	storagePath := path.Join(in.OwnerType+"s", in.OwnerID, in.FileType+"s", filename)

	err := s.storage.Save(storagePath, in.Body, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	file := &model.File{
		ID:           uuid.New().String(),
		AgentID:      in.AgentID,
		OwnerType:    in.OwnerType,
		OwnerID:      in.OwnerID,
		Type:         in.FileType,
		Filename:     filename,
		OriginalName: in.OriginalName,
		MimeType:     in.ContentType,
		Size:         in.Size,
		StoragePath:  storagePath,
		URL:          s.storage.URL(storagePath),
		Public:       true,
		CreatedAt:    time.Now(),
	}

	err = s.fileRepo.Create(file)
	if err != nil {
		// If DB insert fails, try to cleanup the uploaded file
		delErr := s.storage.Delete(storagePath)
		if delErr != nil {
			slog.Error("failed to delete file from storage during cleanup", "error", delErr, "path", storagePath)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	return file, nil
}

// Logo retrieves the current logo of an agent
func (s *FileService) Logo(agentID string) (*model.File, error) {
	return s.fileRepo.FileByType(model.FileOwnerAgent, agentID, model.FileTypeLogo)
}

// Delete removes a file from storage and database
func (s *FileService) Delete(fileID string) error {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	// Delete from storage (best effort)
	delErr := s.storage.Delete(file.StoragePath)
	if delErr != nil {
		slog.Error("failed to delete file from storage", "error", delErr, "path", file.StoragePath)
	}

	err = s.fileRepo.Delete(fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	return nil
}

// DeleteByURL removes the file an owner references by URL.
// URLs without a file record (external links) are ignored.
func (s *FileService) DeleteByURL(ownerType, ownerID, url string) error {
	file, err := s.fileRepo.FileByURL(ownerType, ownerID, url)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil
		}
		return err
	}

	return s.Delete(file.ID)
}

// DeleteOwnerFiles deletes every object of an owner. Storage failures are
// logged and skipped so one missing object does not block the rest.
func (s *FileService) DeleteOwnerFiles(ownerType, ownerID string) error {
	files, err := s.fileRepo.Files(ownerType, ownerID)
	if err != nil {
		return fmt.Errorf("failed to get files: %w", err)
	}

	for _, file := range files {
		err = s.storage.Delete(file.StoragePath)
		if err != nil {
			slog.Warn("failed to delete file from storage", "storage_path", file.StoragePath, "owner_id", ownerID, "error", err)
			continue
		}
		err = s.fileRepo.Delete(file.ID)
		if err != nil {
			slog.Warn("failed to delete file record", "file_id", file.ID, "error", err)
		}
	}

	return nil
}

func (s *FileService) DeleteAllAgentFilesFromStorage(agentID string) error {
	files, err := s.fileRepo.AllAgentFiles(agentID)
	if err != nil {
		return fmt.Errorf("failed to get agent files: %w", err)
	}

	for _, file := range files {
		err = s.storage.Delete(file.StoragePath)
		if err != nil {
			// Log but continue - physical file may already be gone
			slog.Warn("failed to delete file from storage", "storage_path", file.StoragePath, "error", err)
		}
	}

	return nil
}
