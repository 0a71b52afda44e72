package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/shared"
)

// MediaKind is the content type of a Media item
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindExternal MediaKind = "external"
)

// IsValid checks if the media kind is valid
func (k MediaKind) IsValid() bool {
	switch k {
	case MediaKindImage, MediaKindVideo, MediaKindExternal:
		return true
	}
	return false
}

// Media is an image, video or external URL attached to a product-level
// gallery (VariantID nil) or to a variant gallery.
type Media struct {
	ID        uuid.UUID
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	Kind      MediaKind
	ImagePath string
	VideoPath string
	URL       string
	Alt       string
	IsMain    bool
	Position  int
	CreatedAt time.Time
}

// NewExternalMedia creates an external-URL media item. When variant is
// non-nil the item joins the variant gallery and inherits its product.
func NewExternalMedia(productID *uuid.UUID, variant *Variant, url, alt string, isMain bool) (*Media, error) {
	m := &Media{
		ID:        uuid.New(),
		ProductID: productID,
		Kind:      MediaKindExternal,
		URL:       url,
		Alt:       truncate(alt, 255),
		IsMain:    isMain,
		CreatedAt: time.Now(),
	}
	if !isMain {
		m.Position = 1
	}
	if variant != nil {
		if err := m.AttachToVariant(variant); err != nil {
			return nil, err
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// AttachToVariant links the media to v, filling the product from the variant
func (m *Media) AttachToVariant(v *Variant) error {
	if m.ProductID != nil && *m.ProductID != v.ProductID {
		return shared.NewDomainError("INVALID_MEDIA", "Product must match the variant's product")
	}
	vid := v.ID
	pid := v.ProductID
	m.VariantID = &vid
	m.ProductID = &pid
	return nil
}

// Validate enforces attachment and kind/content consistency
func (m *Media) Validate() error {
	if m.ProductID == nil && m.VariantID == nil {
		return shared.NewDomainError("INVALID_MEDIA", "Attach media to a product or to a variant")
	}
	switch m.Kind {
	case MediaKindImage:
		if m.ImagePath == "" {
			return shared.NewDomainError("INVALID_MEDIA", "Upload an image when kind='image'")
		}
	case MediaKindVideo:
		if m.VideoPath == "" {
			return shared.NewDomainError("INVALID_MEDIA", "Upload a video when kind='video'")
		}
	case MediaKindExternal:
		if m.URL == "" {
			return shared.NewDomainError("INVALID_MEDIA", "Provide a URL when kind='external'")
		}
	default:
		return shared.NewDomainError("INVALID_MEDIA", "Unknown media kind")
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
