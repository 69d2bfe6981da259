package id

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// recordNamespace scopes the name-based record ids of this service.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:school-notify:notification-record"))

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as DynamoDB partition keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// ForDelivery derives the notification record id for one recipient of one
// origin event. The same pair always yields the same id.
func ForDelivery(recipientID, originID string) string {
	return uuid.NewSHA1(recordNamespace, []byte(recipientID+"\x00"+originID)).String()
}
