package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BlobRecord is one row of the content-addressable store, keyed by the
// SHA-256 hex digest of Body. Rows are only ever created, never updated.
type BlobRecord struct {
	Hash        string `gorm:"column:hash;type:char(64);primaryKey" json:"hash"`
	ContentType string `gorm:"column:content_type;size:50;not null;default:text/markdown" json:"content_type"`
	Body        []byte `gorm:"column:body;not null" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (BlobRecord) TableName() string { return "blob_store" }

// HashBytes returns the lowercase hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
