package model

import (
	"slices"
	"time"
)

const (
	PropertyTypeHouse      = "house"
	PropertyTypeApartment  = "apartment"
	PropertyTypeLand       = "land"
	PropertyTypeCommercial = "commercial"
	PropertyTypeOffice     = "office"
	PropertyTypeOther      = "other"
)

const (
	ListingTypeSale = "sale"
	ListingTypeRent = "rent"
)

const (
	PropertyStatusActive = "active"
	PropertyStatusSold   = "sold"
	PropertyStatusRented = "rented"
)

const (
	CreatedViaApp         = "app"
	CreatedViaUploadToken = "upload_token"
)

const (
	VideoStatusQueued     = "queued"
	VideoStatusInProgress = "inprogress"
	VideoStatusReady      = "ready"
	VideoStatusError      = "error"
)

const MaxPropertyPhotos = 30

var (
	PropertyTypes    = []string{PropertyTypeHouse, PropertyTypeApartment, PropertyTypeLand, PropertyTypeCommercial, PropertyTypeOffice, PropertyTypeOther}
	ListingTypes     = []string{ListingTypeSale, ListingTypeRent}
	PropertyStatuses = []string{PropertyStatusActive, PropertyStatusSold, PropertyStatusRented}
)

type Property struct {
	ID          string  `db:"id" json:"id"`
	AgentID     string  `db:"agent_id" json:"agent_id"`
	Slug        string  `db:"slug" json:"slug"`
	Title       string  `db:"title" json:"title"`
	Description string  `db:"description" json:"description"`
	Price       float64 `db:"price" json:"price"`
	Currency    string  `db:"currency" json:"currency"`

	PropertyType string   `db:"property_type" json:"property_type"`
	ListingType  string   `db:"listing_type" json:"listing_type"`
	Bedrooms     int      `db:"bedrooms" json:"bedrooms"`
	Bathrooms    int      `db:"bathrooms" json:"bathrooms"`
	AreaM2       float64  `db:"area_m2" json:"area_m2"`
	Address      string   `db:"address" json:"address"`
	City         string   `db:"city" json:"city"`
	Country      string   `db:"country" json:"country"`
	Latitude     *float64 `db:"latitude" json:"latitude"`
	Longitude    *float64 `db:"longitude" json:"longitude"`

	Photos          StringList `db:"photos" json:"photos"`
	MarketingImages StringList `db:"marketing_images" json:"marketing_images"`

	VideoUID          string `db:"video_uid" json:"video_uid,omitempty"`
	VideoStatus       string `db:"video_status" json:"video_status,omitempty"`
	VideoPlaybackURL  string `db:"video_playback_url" json:"video_playback_url,omitempty"`
	VideoThumbnailURL string `db:"video_thumbnail_url" json:"video_thumbnail_url,omitempty"`

	AudioURL        string `db:"audio_url" json:"audio_url,omitempty"`
	AudioTranscript string `db:"audio_transcript" json:"audio_transcript,omitempty"`

	CustomFields JSONMap `db:"custom_fields" json:"custom_fields"`

	Status        string    `db:"status" json:"status"`
	Views         int       `db:"views" json:"views"`
	CreatedVia    string    `db:"created_via" json:"created_via"`
	UploadTokenID *string   `db:"upload_token_id" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Property) IsActive() bool {
	return p.Status == PropertyStatusActive
}

// CreatedWithToken reports whether the upload token tokenID created this property.
func (p *Property) CreatedWithToken(tokenID string) bool {
	return p.UploadTokenID != nil && *p.UploadTokenID == tokenID
}

// CoverImage returns the first photo, or the first marketing image when there are no photos.
func (p *Property) CoverImage() string {
	if len(p.Photos) > 0 {
		return p.Photos[0]
	}
	if len(p.MarketingImages) > 0 {
		return p.MarketingImages[0]
	}
	return ""
}

func (p *Property) HasPhoto(url string) bool {
	return slices.Contains(p.Photos, url)
}

// AllowsStatus reports whether the listing can move to status.
// Rented only applies to rentals and sold only to sales.
func (p *Property) AllowsStatus(status string) bool {
	switch status {
	case PropertyStatusActive:
		return true
	case PropertyStatusSold:
		return p.ListingType == ListingTypeSale
	case PropertyStatusRented:
		return p.ListingType == ListingTypeRent
	default:
		return false
	}
}

func IsPropertyType(t string) bool {
	return slices.Contains(PropertyTypes, t)
}

func IsListingType(t string) bool {
	return slices.Contains(ListingTypes, t)
}

func IsPropertyStatus(s string) bool {
	return slices.Contains(PropertyStatuses, s)
}

// PropertyFilter narrows an agent's listing query.
type PropertyFilter struct {
	Status       string
	PropertyType string
	ListingType  string
	Query        string
	Page         int
	PerPage      int
}

func (f PropertyFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// PublicFeature is a custom field value labelled for display.
type PublicFeature struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Value any    `json:"value"`
}

// PublicProperty is the listing as shown to visitors.
// Values of custom fields the agent has since deleted are not included.
type PublicProperty struct {
	Slug              string          `json:"slug"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Price             float64         `json:"price"`
	Currency          string          `json:"currency"`
	PropertyType      string          `json:"property_type"`
	ListingType       string          `json:"listing_type"`
	Bedrooms          int             `json:"bedrooms"`
	Bathrooms         int             `json:"bathrooms"`
	AreaM2            float64         `json:"area_m2"`
	Address           string          `json:"address"`
	City              string          `json:"city"`
	Country           string          `json:"country"`
	Latitude          *float64        `json:"latitude,omitempty"`
	Longitude         *float64        `json:"longitude,omitempty"`
	Photos            []string        `json:"photos"`
	MarketingImages   []string        `json:"marketing_images"`
	VideoPlaybackURL  string          `json:"video_playback_url,omitempty"`
	VideoThumbnailURL string          `json:"video_thumbnail_url,omitempty"`
	Features          []PublicFeature `json:"features"`
	Status            string          `json:"status"`
	Views             int             `json:"views"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Public builds the visitor view, labelling custom values with fields in their display order.
func (p *Property) Public(fields []*CustomField) PublicProperty {
	features := make([]PublicFeature, 0, len(fields))
	for _, field := range fields {
		value, ok := p.CustomFields[field.Key]
		if !ok || value == nil {
			continue
		}
		features = append(features, PublicFeature{Key: field.Key, Name: field.Name, Icon: field.Icon, Value: value})
	}

	videoURL := ""
	if p.VideoStatus == VideoStatusReady {
		videoURL = p.VideoPlaybackURL
	}

	return PublicProperty{
		Slug:              p.Slug,
		Title:             p.Title,
		Description:       p.Description,
		Price:             p.Price,
		Currency:          p.Currency,
		PropertyType:      p.PropertyType,
		ListingType:       p.ListingType,
		Bedrooms:          p.Bedrooms,
		Bathrooms:         p.Bathrooms,
		AreaM2:            p.AreaM2,
		Address:           p.Address,
		City:              p.City,
		Country:           p.Country,
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		Photos:            p.Photos,
		MarketingImages:   p.MarketingImages,
		VideoPlaybackURL:  videoURL,
		VideoThumbnailURL: p.VideoThumbnailURL,
		Features:          features,
		Status:            p.Status,
		Views:             p.Views,
		CreatedAt:         p.CreatedAt,
	}
}
