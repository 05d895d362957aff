// Package address converts between external message identifiers and
// conversation coordinates.
//
// Format (version 1), fields joined by "_":
//
//	m1_<conversation hex id>_<zero-based index>
//	m1_<conversation hex id>_oid_<message hex id>
//
// Encode always produces the index form. Decode accepts both.
package address

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	Version   = "m1"
	sep       = "_"
	nativeTag = "oid"
)

var (
	ErrMissingDelimiter = fmt.Errorf("%w: missing delimiter", apperr.ErrInvalidAddress)
	ErrUnknownVersion   = fmt.Errorf("%w: unknown version tag", apperr.ErrInvalidAddress)
	ErrConversationID   = fmt.Errorf("%w: conversation id is not a valid id", apperr.ErrInvalidAddress)
	ErrIndex            = fmt.Errorf("%w: index is not a non-negative integer", apperr.ErrInvalidAddress)
	ErrMessageID        = fmt.Errorf("%w: message id is not a valid id", apperr.ErrInvalidAddress)
)

// Address locates one message. Exactly one of Index (>= 0) or MessageID is meaningful,
// as reported by IsNative.
type Address struct {
	ConversationID primitive.ObjectID
	Index          int
	MessageID      primitive.ObjectID
}

func (a Address) IsNative() bool {
	return !a.MessageID.IsZero()
}

func (a Address) String() string {
	if a.IsNative() {
		return EncodeNative(a.ConversationID, a.MessageID)
	}
	return Encode(a.ConversationID, a.Index)
}

func Encode(conversationID primitive.ObjectID, index int) string {
	return Version + sep + conversationID.Hex() + sep + strconv.Itoa(index)
}

// EncodeNative builds the subdocument-id form.
func EncodeNative(conversationID, messageID primitive.ObjectID) string {
	return Version + sep + conversationID.Hex() + sep + nativeTag + sep + messageID.Hex()
}

func Decode(s string) (Address, error) {
	parts := strings.Split(s, sep)
	if len(parts) < 3 {
		return Address{}, ErrMissingDelimiter
	}
	if parts[0] != Version {
		return Address{}, fmt.Errorf("%w: %q", ErrUnknownVersion, parts[0])
	}
	conv, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return Address{}, ErrConversationID
	}

	switch {
	case len(parts) == 3:
		idx, err := parseIndex(parts[2])
		if err != nil {
			return Address{}, err
		}
		return Address{ConversationID: conv, Index: idx}, nil
	case len(parts) == 4 && parts[2] == nativeTag:
		mid, err := primitive.ObjectIDFromHex(parts[3])
		if err != nil || mid.IsZero() {
			return Address{}, ErrMessageID
		}
		return Address{ConversationID: conv, Index: -1, MessageID: mid}, nil
	default:
		return Address{}, fmt.Errorf("%w: unexpected segment count %d", apperr.ErrInvalidAddress, len(parts))
	}
}

func parseIndex(s string) (int, error) {
	if s == "" {
		return 0, ErrIndex
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrIndex
		}
	}
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrIndex
	}
	return idx, nil
}
