package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"slices"
	"time"

	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/validation"
)

var (
	ErrPhotoNotFound = errors.New("photo not found on this property")
	ErrNoVideo       = errors.New("property has no video")
)

// AddPhotos appends uploaded photos in the given order, up to MaxPropertyPhotos.
// All files are validated before anything is stored.
func (s *PropertyService) AddPhotos(agentID, propertyID string, headers []*multipart.FileHeader) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}

	if len(headers) == 0 {
		return nil, invalidf("no photos uploaded")
	}
	if len(property.Photos)+len(headers) > model.MaxPropertyPhotos {
		return nil, invalidf("a property can have at most %d photos, it has %d", model.MaxPropertyPhotos, len(property.Photos))
	}

	contentTypes := make([]string, len(headers))
	for i, header := range headers {
		contentTypes[i], err = validation.ValidateFile(header, validation.PhotoConstraints)
		if err != nil {
			return nil, invalidf("%s: %v", header.Filename, err)
		}
	}

	var uploaded []*model.File
	for i, header := range headers {
		file, err := s.storeUpload(agentID, property.ID, model.FileTypePhoto, contentTypes[i], header)
		if err != nil {
			s.discardFiles(uploaded)
			return nil, err
		}
		uploaded = append(uploaded, file)
	}

	for _, file := range uploaded {
		property.Photos = append(property.Photos, file.URL)
	}
	property.UpdatedAt = time.Now()

	err = s.propertyRepo.Update(property)
	if err != nil {
		s.discardFiles(uploaded)
		return nil, fmt.Errorf("failed to save photos: %w", err)
	}

	slog.Info("photos added", "property_id", property.ID, "count", len(uploaded))
	return property, nil
}

func (s *PropertyService) storeUpload(agentID, propertyID, fileType, contentType string, header *multipart.FileHeader) (*model.File, error) {
	body, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer body.Close()

	return s.fileService.Upload(UploadInput{
		AgentID:      agentID,
		OwnerType:    model.FileOwnerProperty,
		OwnerID:      propertyID,
		FileType:     fileType,
		OriginalName: header.Filename,
		ContentType:  contentType,
		Size:         header.Size,
		Body:         body,
	})
}

func (s *PropertyService) discardFiles(files []*model.File) {
	for _, file := range files {
		err := s.fileService.Delete(file.ID)
		if err != nil {
			slog.Warn("failed to discard uploaded file", "error", err, "file_id", file.ID)
		}
	}
}

func (s *PropertyService) RemovePhoto(agentID, propertyID, url string) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}

	idx := slices.Index(property.Photos, url)
	if idx < 0 {
		return nil, ErrPhotoNotFound
	}

	property.Photos = slices.Delete(property.Photos, idx, idx+1)
	property.UpdatedAt = time.Now()
	err = s.propertyRepo.Update(property)
	if err != nil {
		return nil, fmt.Errorf("failed to remove photo: %w", err)
	}

	err = s.fileService.DeleteByURL(model.FileOwnerProperty, property.ID, url)
	if err != nil {
		slog.Warn("failed to delete photo file", "error", err, "property_id", property.ID, "url", url)
	}

	return property, nil
}

// ReorderPhotos sets a new photo order. urls must be a permutation of the current photos.
func (s *PropertyService) ReorderPhotos(agentID, propertyID string, urls []string) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}

	if !isPermutation(property.Photos, urls) {
		return nil, invalidf("urls must contain each current photo exactly once")
	}

	property.Photos = slices.Clone(urls)
	property.UpdatedAt = time.Now()
	err = s.propertyRepo.Update(property)
	if err != nil {
		return nil, fmt.Errorf("failed to reorder photos: %w", err)
	}
	return property, nil
}

func isPermutation(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}
	counts := make(map[string]int, len(current))
	for _, u := range current {
		counts[u]++
	}
	for _, u := range proposed {
		counts[u]--
		if counts[u] < 0 {
			return false
		}
	}
	return true
}

// UploadVideo sends the video to the video platform and replaces any previous one.
func (s *PropertyService) UploadVideo(ctx context.Context, agentID, propertyID string, header *multipart.FileHeader) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}

	_, err = validation.ValidateFile(header, validation.VideoConstraints)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	body, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer body.Close()

	uploaded, err := s.videos.Upload(ctx, header.Filename, body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	previous := property.VideoUID
	property.VideoUID = uploaded.UID
	property.VideoStatus = uploaded.State
	property.VideoPlaybackURL = uploaded.PlaybackURL
	property.VideoThumbnailURL = uploaded.ThumbnailURL
	property.UpdatedAt = time.Now()

	err = s.propertyRepo.Update(property)
	if err != nil {
		return nil, fmt.Errorf("failed to save video: %w", err)
	}

	if previous != "" && previous != uploaded.UID {
		err = s.videos.Delete(ctx, previous)
		if err != nil {
			slog.Warn("failed to delete previous video", "error", err, "property_id", property.ID, "video_uid", previous)
		}
	}

	slog.Info("video uploaded", "property_id", property.ID, "video_uid", uploaded.UID)
	return property, nil
}

// RefreshVideo pulls the processing state from the video platform and stores it.
func (s *PropertyService) RefreshVideo(ctx context.Context, agentID, propertyID string) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}
	if property.VideoUID == "" {
		return nil, ErrNoVideo
	}

	current, err := s.videos.Status(ctx, property.VideoUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video status: %w", err)
	}

	if current.State != property.VideoStatus ||
		current.PlaybackURL != property.VideoPlaybackURL ||
		current.ThumbnailURL != property.VideoThumbnailURL {
		property.VideoStatus = current.State
		property.VideoPlaybackURL = current.PlaybackURL
		property.VideoThumbnailURL = current.ThumbnailURL
		property.UpdatedAt = time.Now()

		err = s.propertyRepo.Update(property)
		if err != nil {
			return nil, fmt.Errorf("failed to save video status: %w", err)
		}
	}

	return property, nil
}

// UploadAudio stores a voice note and transcribes it. The transcription
// costs CreditCostTranscription, charged once it succeeded.
func (s *PropertyService) UploadAudio(ctx context.Context, agentID, propertyID string, header *multipart.FileHeader) (*model.Property, error) {
	property, err := s.Owned(agentID, propertyID)
	if err != nil {
		return nil, err
	}

	contentType, err := validation.ValidateFile(header, validation.AudioConstraints)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	err = s.creditService.Check(agentID, CreditCostTranscription)
	if err != nil {
		return nil, err
	}

	file, err := s.storeUpload(agentID, property.ID, model.FileTypeAudio, contentType, header)
	if err != nil {
		return nil, err
	}

	body, err := header.Open()
	if err != nil {
		s.discardFiles([]*model.File{file})
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer body.Close()

	transcript, err := s.ai.Transcribe(ctx, header.Filename, body)
	if err != nil {
		s.discardFiles([]*model.File{file})
		return nil, fmt.Errorf("failed to transcribe audio: %w", err)
	}

	previous := property.AudioURL
	property.AudioURL = file.URL
	property.AudioTranscript = transcript
	property.UpdatedAt = time.Now()

	err = s.propertyRepo.Update(property)
	if err != nil {
		s.discardFiles([]*model.File{file})
		return nil, fmt.Errorf("failed to save audio: %w", err)
	}

	err = s.creditService.Consume(agentID, CreditCostTranscription)
	if err != nil {
		slog.Warn("failed to charge transcription credit", "error", err, "agent_id", agentID, "property_id", property.ID)
	}

	if previous != "" && previous != file.URL {
		err = s.fileService.DeleteByURL(model.FileOwnerProperty, property.ID, previous)
		if err != nil {
			slog.Warn("failed to delete previous audio", "error", err, "property_id", property.ID)
		}
	}

	return property, nil
}
