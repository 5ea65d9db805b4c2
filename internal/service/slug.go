package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/templui/estatedesk/internal/validation"
)

const maxSlugProbes = 50

// uniqueSlug tries base, base-2, base-3, ... and falls back to a random
// suffix once maxSlugProbes candidates are taken.
func uniqueSlug(text, fallback string, exists func(string) (bool, error)) (string, error) {
	base := validation.Slugify(text)
	if base == "" {
		base = fallback
	}

	for i := 1; i <= maxSlugProbes; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}

		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	suffix := make([]byte, 3)
	_, err := rand.Read(suffix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", base, hex.EncodeToString(suffix)), nil
}
