package common

import (
	"github.com/google/uuid"
)

// NewURLID generates a unique URL record ID with the "url_" prefix
// Format: url_<uuid>
func NewURLID() string {
	return "url_" + uuid.New().String()
}

// NewAPIKey generates a new client credential with the "key_" prefix
// Format: key_<uuid>
func NewAPIKey() string {
	return "key_" + uuid.New().String()
}
