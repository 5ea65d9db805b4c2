package model

import (
	"time"
)

const (
	FileTypeLogo           = "logo"
	FileTypePhoto          = "photo"
	FileTypeMarketingImage = "marketing_image"
	FileTypeAudio          = "audio"
)

const (
	FileOwnerAgent    = "agent"
	FileOwnerProperty = "property"
)

type File struct {
	ID           string    `db:"id"`
	AgentID      string    `db:"agent_id"`   // Who owns/created this file
	OwnerType    string    `db:"owner_type"` // "agent" or "property"
	OwnerID      string    `db:"owner_id"`   // Polymorphic FK
	Type         string    `db:"type"`
	Filename     string    `db:"filename"`
	OriginalName string    `db:"original_name"`
	MimeType     string    `db:"mime_type"`
	Size         int64     `db:"size"`
	StoragePath  string    `db:"storage_path"`
	URL          string    `db:"url"`    // Public URL handed out in property/agent JSON
	Public       bool      `db:"public"`
	CreatedAt    time.Time `db:"created_at"`
}
