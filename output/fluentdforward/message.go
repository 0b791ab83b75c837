package fluentdforward

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/relex/fluentlib/protocol/forwardprotocol"
	"github.com/relex/slog-shipper/base"
	"github.com/vmihailenco/msgpack/v4"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Field keys of the record part of events
const (
	recordKeyMessage = "log"
	recordKeyTag     = "tag"
)

// messageEncoder packs chunks into Forward messages, one message per chunk
//
// It's not thread-safe. The returned message is only valid until the next call.
type messageEncoder struct {
	tag         string
	mode        forwardprotocol.MessageMode
	msgBuffer   bytes.Buffer
	entryBuffer bytes.Buffer
	gzipBuffer  bytes.Buffer
	gzipWriter  *gzip.Writer
	timeBuffer  []byte
}

func newMessageEncoder(tag string, mode forwardprotocol.MessageMode) *messageEncoder {
	enc := &messageEncoder{
		tag:        tag,
		mode:       mode,
		timeBuffer: make([]byte, 0, eventTimeLength),
	}
	if mode == forwardprotocol.ModeCompressedPackedForward {
		enc.gzipWriter = gzip.NewWriter(&enc.gzipBuffer)
	}
	return enc
}

// Encode creates a Forward message for the given chunk, with the chunk ID as the option to request ACK
func (enc *messageEncoder) Encode(chunk base.LogChunk) ([]byte, error) {
	enc.msgBuffer.Reset()
	encoder := msgpack.NewEncoder(&enc.msgBuffer)

	// root array
	if err := encoder.EncodeArrayLen(3); err != nil {
		return nil, err
	}
	// root[0]: tag
	if err := encoder.EncodeString(enc.tag); err != nil {
		return nil, err
	}
	// root[1]: entries
	option := forwardprotocol.TransportOption{
		Size:       len(chunk.Logs),
		Chunk:      chunk.ID,
		Compressed: "",
	}
	switch enc.mode {
	case forwardprotocol.ModeForward:
		if err := encoder.EncodeArrayLen(len(chunk.Logs)); err != nil {
			return nil, err
		}
		for _, log := range chunk.Logs {
			if err := enc.encodeEntry(&enc.msgBuffer, encoder, log); err != nil {
				return nil, err
			}
		}
	case forwardprotocol.ModePackedForward:
		packed, err := enc.packEntries(chunk.Logs)
		if err != nil {
			return nil, err
		}
		if err := encoder.EncodeBytes(packed); err != nil {
			return nil, err
		}
	case forwardprotocol.ModeCompressedPackedForward:
		packed, err := enc.packEntries(chunk.Logs)
		if err != nil {
			return nil, err
		}
		compressed, err := enc.compress(packed)
		if err != nil {
			return nil, err
		}
		if err := encoder.EncodeBytes(compressed); err != nil {
			return nil, err
		}
		option.Compressed = forwardprotocol.CompressionFormat
	default:
		return nil, fmt.Errorf("unsupported message mode: %s", enc.mode)
	}
	// root[2]: option
	if err := encoder.Encode(option); err != nil {
		return nil, err
	}
	return enc.msgBuffer.Bytes(), nil
}

func (enc *messageEncoder) packEntries(logs []base.LogRecord) ([]byte, error) {
	enc.entryBuffer.Reset()
	encoder := msgpack.NewEncoder(&enc.entryBuffer)
	for _, log := range logs {
		if err := enc.encodeEntry(&enc.entryBuffer, encoder, log); err != nil {
			return nil, err
		}
	}
	return enc.entryBuffer.Bytes(), nil
}

func (enc *messageEncoder) compress(data []byte) ([]byte, error) {
	enc.gzipBuffer.Reset()
	enc.gzipWriter.Reset(&enc.gzipBuffer)
	if _, err := enc.gzipWriter.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := enc.gzipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	return enc.gzipBuffer.Bytes(), nil
}

// encodeEntry writes an event entry: [EventTime, {record}]
//
// Fields named the same as the reserved keys are skipped.
//
// The encoder must write to the given buffer without buffering of its own, since EventTime is appended directly.
func (enc *messageEncoder) encodeEntry(buffer *bytes.Buffer, encoder *msgpack.Encoder, log base.LogRecord) error {
	if err := encoder.EncodeArrayLen(2); err != nil {
		return err
	}
	enc.timeBuffer = encodeEventTime(enc.timeBuffer[:0], log.Time)
	buffer.Write(enc.timeBuffer)

	keys := maps.Keys(log.Fields)
	validKeys := keys[:0]
	for _, key := range keys {
		if key != recordKeyMessage && key != recordKeyTag {
			validKeys = append(validKeys, key)
		}
	}
	keys = validKeys
	slices.Sort(keys)
	numFields := len(keys) + 1
	if len(log.Tag) > 0 {
		numFields++
	}
	if err := encoder.EncodeMapLen(numFields); err != nil {
		return err
	}
	for _, key := range keys {
		if err := encodeStringPair(encoder, key, log.Fields[key]); err != nil {
			return err
		}
	}
	if len(log.Tag) > 0 {
		if err := encodeStringPair(encoder, recordKeyTag, log.Tag); err != nil {
			return err
		}
	}
	return encodeStringPair(encoder, recordKeyMessage, log.Message)
}

func encodeStringPair(encoder *msgpack.Encoder, key string, value string) error {
	if err := encoder.EncodeString(key); err != nil {
		return err
	}
	return encoder.EncodeString(value)
}
