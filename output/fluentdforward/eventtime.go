package fluentdforward

import (
	"time"

	"github.com/vmihailenco/msgpack/v4/codes"
)

// eventTimeLength is the length of an encoded EventTime: ext header + uint32 seconds + uint32 nanoseconds
const eventTimeLength = 10

// encodeEventTime encodes the given time as fluentd EventTime (ext type 0) into the buffer
func encodeEventTime(buffer []byte, value time.Time) []byte {
	sec := uint32(value.Unix())
	nsec := uint32(value.Nanosecond())
	return append(buffer,
		byte(codes.FixExt8), 0,
		byte(sec>>24), byte(sec>>16), byte(sec>>8), byte(sec),
		byte(nsec>>24), byte(nsec>>16), byte(nsec>>8), byte(nsec),
	)
}
