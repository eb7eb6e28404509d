package race

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RoomIDLength is the number of base-36 characters in a room id.
const RoomIDLength = 6

// roomIDSpace is 36^6, the number of distinct room ids.
const roomIDSpace = 36 * 36 * 36 * 36 * 36 * 36

// IDGenerator produces candidate room ids. Uniqueness against live rooms is
// enforced by the registry, not the generator.
type IDGenerator interface {
	NewRoomID() string
}

// UUIDRoomIDs derives short upper-case base-36 ids from random v4 UUIDs.
type UUIDRoomIDs struct{}

func (UUIDRoomIDs) NewRoomID() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8]) % roomIDSpace
	id := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(id) < RoomIDLength {
		id = strings.Repeat("0", RoomIDLength-len(id)) + id
	}
	return id
}
