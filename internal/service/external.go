package service

import (
	"context"
	"io"

	"github.com/templui/estatedesk/internal/service/social"
	"github.com/templui/estatedesk/internal/service/video"
)

// VideoPlatform hosts listing videos. Implemented by video.Client.
type VideoPlatform interface {
	Upload(ctx context.Context, filename string, file io.Reader) (*video.Video, error)
	Status(ctx context.Context, uid string) (*video.Video, error)
	Delete(ctx context.Context, uid string) error
}

// AIProvider generates listing content. Implemented by ai.Client.
type AIProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt, size string) ([]byte, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// PagePublisher connects Facebook pages. Implemented by social.Facebook.
type PagePublisher interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	Pages(ctx context.Context, userToken string) ([]social.Page, error)
	Publish(ctx context.Context, pageID, pageToken, message, link string) (string, error)
}
