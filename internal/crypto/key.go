package crypto

import (
	"crypto/sha256"
	"sort"
)

// KeySize is the length in bytes of a conversation key.
const KeySize = sha256.Size

// DeriveKey returns the symmetric key shared by a pair of users. The ids are
// sorted before hashing so the result does not depend on argument order.
func DeriveKey(userA, userB string) []byte {
	ids := []string{userA, userB}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(ids[0] + ids[1]))
	return sum[:]
}
