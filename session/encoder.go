package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	recordFormatVersion = 1
	encodedRecordSize   = 1 + 8 + 8 + 1

	offsetTenant = 1
	offsetActive = 17
)

var (
	errRecordTooShort      = errors.New("session record too short")
	errUnsupportedVersion  = errors.New("unsupported session record version")
	errRecordTrailingBytes = errors.New("session record has trailing bytes")
)

// Encode renders r in the fixed binary layout stored in Redis.
func Encode(r Record) []byte {
	var buf bytes.Buffer
	buf.Grow(encodedRecordSize)

	buf.WriteByte(recordFormatVersion)
	_ = binary.Write(&buf, binary.BigEndian, r.TenantID)
	_ = binary.Write(&buf, binary.BigEndian, r.CreatedAt.UnixMilli())
	if r.Active {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// Decode parses a record produced by Encode.
func Decode(data []byte) (Record, error) {
	if len(data) < encodedRecordSize {
		return Record{}, errRecordTooShort
	}
	if data[0] != recordFormatVersion {
		return Record{}, errUnsupportedVersion
	}
	if len(data) != encodedRecordSize {
		return Record{}, errRecordTrailingBytes
	}

	tenantID := int64(binary.BigEndian.Uint64(data[offsetTenant : offsetTenant+8]))
	createdMs := int64(binary.BigEndian.Uint64(data[offsetTenant+8 : offsetActive]))

	return Record{
		TenantID:  tenantID,
		CreatedAt: time.UnixMilli(createdMs).UTC(),
		Active:    data[offsetActive] != 0,
	}, nil
}

func encodeTenant(tenantID int64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(tenantID))
	return string(b[:])
}
