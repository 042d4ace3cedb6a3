// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package configstore

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/pulse-training/pulse-gw/pkg/core/apierr"
)

const maxSlugRunes = 40

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID rejects ids that cannot be used as a single blob key segment.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || strings.Contains(id, "..") {
		return apierr.Validation("invalid id %q", id)
	}
	return nil
}

// NewPromptID derives an id from a title: the lowercased title with every run
// of non-alphanumeric characters collapsed to one hyphen, cut to 40
// characters, followed by the first group of a random UUID.
//
//	NewPromptID("Greeting v1!") // "greeting-v1-1b4e28ba"
func NewPromptID(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		// Non-ASCII letters are dropped so the id stays a portable key.
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	base := strings.Join(parts, "-")
	if len(base) > maxSlugRunes {
		base = strings.TrimRight(base[:maxSlugRunes], "-")
	}

	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
