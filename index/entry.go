package index

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/aqfsorg/libaqfs-go/storage"
)

// Entry maps one version of a logical key to its chunk set. Entries are
// immutable once committed; a key changes only by gaining a higher-numbered
// entry. CBOR with integer keys keeps the encoding compact and
// deterministic.
type Entry struct {
	Key       string        `cbor:"1,keyasint"`
	Version   uint64        `cbor:"2,keyasint"`
	Refs      []storage.Ref `cbor:"3,keyasint"`
	Size      int64         `cbor:"4,keyasint"`
	Sum       storage.Hash  `cbor:"5,keyasint"` // whole-object hash
	ModTime   time.Time     `cbor:"6,keyasint"`
	Tombstone bool          `cbor:"7,keyasint,omitempty"`
}

// encMode uses Core Deterministic Encoding so the same entry always
// produces identical bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("index: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("index: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes the entry to CBOR.
func (e *Entry) Encode() ([]byte, error) {
	return encMode.Marshal(e)
}

// DecodeEntry deserializes an entry from CBOR.
func DecodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := decMode.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	return &e, nil
}

// Object naming. Versions are zero-padded decimal so backend LIST order is
// version order; the ".entry" object carries the encoded Entry and the
// ".commit" marker signals the entry and all of its chunks are durable. An
// entry without its commit marker is in flight and invisible to readers.
const (
	indexPrefix   = "index/"
	entrySuffix   = ".entry"
	commitSuffix  = ".commit"
	versionDigits = 20
)

// escapeKey makes a logical key safe for use inside an object name.
// PathEscape keeps typical keys readable while escaping "/" and other
// separators that would break prefix listing.
func escapeKey(key string) string {
	return url.PathEscape(key)
}

// keyPrefix returns the object-name prefix holding all versions of key.
func keyPrefix(key string) string {
	return indexPrefix + escapeKey(key) + "/"
}

// formatVersion renders a version as a fixed-width decimal.
func formatVersion(v uint64) string {
	return fmt.Sprintf("%0*d", versionDigits, v)
}

// entryObjectName returns the name of the entry object for (key, version).
func entryObjectName(key string, version uint64) string {
	return keyPrefix(key) + formatVersion(version) + entrySuffix
}

// commitObjectName returns the name of the commit marker for (key, version).
func commitObjectName(key string, version uint64) string {
	return keyPrefix(key) + formatVersion(version) + commitSuffix
}

// parseVersionName extracts the version number from an object name under a
// key's prefix and reports whether the name is a commit marker. Returns
// ok=false for names that do not follow the layout.
func parseVersionName(name, prefix string) (version uint64, commit bool, ok bool) {
	rest, found := strings.CutPrefix(name, prefix)
	if !found {
		return 0, false, false
	}
	var suffix string
	switch {
	case strings.HasSuffix(rest, entrySuffix):
		suffix = entrySuffix
	case strings.HasSuffix(rest, commitSuffix):
		suffix = commitSuffix
	default:
		return 0, false, false
	}
	digits := strings.TrimSuffix(rest, suffix)
	if len(digits) != versionDigits {
		return 0, false, false
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false, false
	}
	return v, suffix == commitSuffix, true
}
