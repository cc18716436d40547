package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag derives a weak validator from a document id and its
// modification time.
func GenerateETag(id primitive.ObjectID, t time.Time) string {
	h := sha1.New()
	h.Write([]byte(id.Hex()))
	h.Write([]byte(strconv.FormatInt(t.UnixNano(), 10)))
	return `W/"` + hex.EncodeToString(h.Sum(nil)) + `"`
}
