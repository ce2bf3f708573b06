package source

import (
	"strings"

	"github.com/google/uuid"
)

// Fingerprint is an opaque comparable identity of a data source. Equal
// fingerprints mean chunks fetched earlier are still valid.
type Fingerprint struct {
	id uuid.UUID
}

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tblview:source"))

func newFingerprint(kind string, identity ...string) Fingerprint {
	return Fingerprint{id: uuid.NewSHA1(namespace, []byte(kind+"\x00"+strings.Join(identity, "\x00")))}
}

// IsZero returns true for fingerprint of no source.
func (f Fingerprint) IsZero() bool {
	return f.id == uuid.Nil
}

func (f Fingerprint) String() string {
	return f.id.String()
}
