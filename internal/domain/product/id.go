package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// ErrInvalidID is returned for identifiers that are neither unsigned integers nor UUIDs.
var ErrInvalidID = errors.New("invalid product id")

// ID is an opaque point identifier: an unsigned integer or a UUID.
type ID struct {
	num    uint64
	uuid   uuid.UUID
	isUUID bool
}

// NumID creates a numeric identifier.
func NumID(n uint64) ID { return ID{num: n} }

// UUIDID creates a UUID identifier.
func UUIDID(u uuid.UUID) ID { return ID{uuid: u, isUUID: true} }

// ParseID reads an identifier from its string form. Decimal strings become
// numeric IDs; anything else must be a UUID.
func ParseID(s string) (ID, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return NumID(n), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q: %w", ErrInvalidID, s, err)
	}
	return UUIDID(u), nil
}

// IsUUID reports whether the identifier is a UUID.
func (id ID) IsUUID() bool { return id.isUUID }

// Num returns the numeric value (zero for UUID identifiers).
func (id ID) Num() uint64 { return id.num }

// UUID returns the UUID value (uuid.Nil for numeric identifiers).
func (id ID) UUID() uuid.UUID { return id.uuid }

func (id ID) String() string {
	if id.isUUID {
		return id.uuid.String()
	}
	return strconv.FormatUint(id.num, 10)
}

// Less orders numeric identifiers before UUIDs, numbers by value, UUIDs bytewise
// (the same order as their canonical strings).
func (id ID) Less(other ID) bool {
	if id.isUUID != other.isUUID {
		return !id.isUUID
	}
	if id.isUUID {
		return bytes.Compare(id.uuid[:], other.uuid[:]) < 0
	}
	return id.num < other.num
}

// MarshalJSON writes numeric IDs as JSON numbers and UUIDs as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isUUID {
		return json.Marshal(id.uuid.String()) //nolint:wrapcheck // string marshal cannot fail
	}
	return []byte(strconv.FormatUint(id.num, 10)), nil
}

// UnmarshalJSON accepts either a JSON number or a string holding a number or UUID.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		parsed, err := ParseID(s)
		if err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = parsed
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = NumID(n)
	return nil
}
