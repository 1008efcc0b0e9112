// Package blobstore holds the content-addressed audio stores.
package blobstore

import (
	"time"

	"github.com/satriahrh/learnvoice/internal/cachekey"
)

// URLSigner builds download URLs for objects served by this process
type URLSigner interface {
	SignURL(key cachekey.Key, ttl time.Duration) (string, error)
}
