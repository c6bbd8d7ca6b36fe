package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// GenerateETag derives a weak validator from the stored form of a document,
// so any persisted change, nested fields included, yields a new tag.
func GenerateETag(doc interface{}) (string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("etag: %w", err)
	}
	sum := sha1.Sum(raw)
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`, nil
}
