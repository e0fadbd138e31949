package models

import (
	"time"
)

// APIKey maps a client credential to an account. Submissions from the iOS
// Shortcut and manual API calls authenticate with one of these.
type APIKey struct {
	Key       string    `json:"key" badgerhold:"key"`
	Account   string    `json:"account" badgerhold:"index"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
