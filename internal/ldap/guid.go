package ldap

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// parseGUID accepts hyphenated, compact, braced and URN GUID forms.
func parseGUID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// adGUIDBytes converts a GUID to the mixed-endian layout Active Directory
// uses for objectGUID: the first three groups are little-endian.
func adGUIDBytes(id uuid.UUID) []byte {
	b := make([]byte, len(id))

	b[0], b[1], b[2], b[3] = id[3], id[2], id[1], id[0]
	b[4], b[5] = id[5], id[4]
	b[6], b[7] = id[7], id[6]
	copy(b[8:], id[8:])

	return b
}

// guidFromADBytes is the inverse of adGUIDBytes.
func guidFromADBytes(b []byte) (uuid.UUID, error) {
	if len(b) != len(uuid.UUID{}) {
		return uuid.Nil, fmt.Errorf("invalid GUID byte length: expected %d, got %d", len(uuid.UUID{}), len(b))
	}

	var id uuid.UUID
	id[0], id[1], id[2], id[3] = b[3], b[2], b[1], b[0]
	id[4], id[5] = b[5], b[4]
	id[6], id[7] = b[7], b[6]
	copy(id[8:], b[8:])

	return id, nil
}

// guidFilter builds an equality filter on attr. objectGUID is matched on its
// binary encoding, any other attribute (entryUUID, nsUniqueId...) on the
// canonical string.
func guidFilter(attr string, id uuid.UUID) string {
	if strings.EqualFold(attr, "objectGUID") {
		return fmt.Sprintf("(%s=%s)", attr, hexFilterValue(adGUIDBytes(id)))
	}
	return fmt.Sprintf("(%s=%s)", attr, ldap.EscapeFilter(id.String()))
}

// hexFilterValue escapes every octet of a binary assertion value as \hh.
func hexFilterValue(b []byte) string {
	encoded := hex.EncodeToString(b)

	var sb strings.Builder
	sb.Grow(len(encoded) + len(b))
	for i := 0; i < len(encoded); i += 2 {
		sb.WriteByte('\\')
		sb.WriteString(encoded[i : i+2])
	}

	return sb.String()
}
