package utils

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	notesPolicy     *bluemonday.Policy
	notesPolicyOnce sync.Once
)

// SanitizeNotes strips markup from free-text fields (member notes, trainer
// bios) which front-desk staff paste from anywhere.
func SanitizeNotes(s string) string {
	notesPolicyOnce.Do(func() {
		notesPolicy = bluemonday.StrictPolicy()
	})
	return notesPolicy.Sanitize(s)
}
