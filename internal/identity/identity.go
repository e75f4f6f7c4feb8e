// Package identity generates the virtual device the upstream client presents
// itself as. Identifiers are produced once per process; tickets once per call.
package identity

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDeviceIDLength matches the 19-digit ids the mobile app sends.
const DefaultDeviceIDLength = 19

const hexDigits = "0123456789abcdef"

// ClientIdentity is the set of device identifiers shared by every outgoing
// request. It is generated once at startup and never mutated.
type ClientIdentity struct {
	DeviceID  string
	InstallID string
	OpenUDID  string
	CDID      string
}

// New generates a fresh identity. Call it once per process.
func New() ClientIdentity {
	return ClientIdentity{
		DeviceID:  NewDeviceID(DefaultDeviceIDLength),
		InstallID: NewDeviceID(DefaultDeviceIDLength),
		OpenUDID:  NewOpenUDID(),
		CDID:      NewUUIDv4(),
	}
}

// NewDeviceID returns a numeric string of the given length without a leading
// zero. A non-positive length falls back to DefaultDeviceIDLength.
func NewDeviceID(length int) string {
	if length <= 0 {
		length = DefaultDeviceIDLength
	}
	var b strings.Builder
	b.Grow(length)
	b.WriteByte(byte('1' + rand.IntN(9)))
	for i := 1; i < length; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// NewOpenUDID returns 16 lowercase hex characters.
func NewOpenUDID() string {
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = hexDigits[rand.IntN(16)]
	}
	return string(buf)
}

// NewUUIDv4 returns a random version 4 UUID in canonical form.
func NewUUIDv4() string {
	return uuid.NewString()
}

// NewRequestTicket returns the _rticket value: current unix seconds plus a
// small jitter so upstream caches never see the same value twice in a row.
func NewRequestTicket() string {
	return strconv.FormatInt(time.Now().Unix()+rand.Int64N(1000), 10)
}
