package mapper

import (
	"encoding/json"
	"fmt"
	"strings"

	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/core/models"
)

func mediaURL(m atdw.Multimedia) string {
	if u := m.ImageURL.Trim(); u != "" {
		return u
	}
	if u := m.URL.Trim(); u != "" {
		return u
	}
	return m.ServerPath.Trim() + m.ImagePath.Trim()
}

// mapMedia drops items without a URL, then numbers the rest from 1.
// The first kept item is the hero image.
func mapMedia(provider string, items []atdw.Multimedia) ([]models.MediaItem, error) {
	out := make([]models.MediaItem, 0, len(items))
	for _, m := range items {
		url := mediaURL(m)
		if url == "" {
			continue
		}

		ordinal := len(out) + 1
		role := models.MediaRoleGallery
		if ordinal == 1 {
			role = models.MediaRoleHero
		}

		mediaType := strings.ToLower(m.ContentType.Trim())
		if mediaType == "" {
			mediaType = "image"
		}

		meta, err := json.Marshal(map[string]any{
			"alt_text":     nullable(m.AltText),
			"copyright":    nullable(m.Copyright),
			"caption":      nullable(m.Caption),
			"width":        nullable(m.Width),
			"height":       nullable(m.Height),
			"photographer": nullable(m.Photographer),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal media meta for %s: %w", url, err)
		}

		out = append(out, models.MediaItem{
			Provider:  provider,
			URL:       url,
			Ordinal:   ordinal,
			Role:      role,
			MediaType: mediaType,
			Meta:      meta,
		})
	}
	return out, nil
}
