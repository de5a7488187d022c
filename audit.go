package fangauth

import (
	"io"

	"github.com/blackfang-intel/fangauth/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is a single security-relevant outcome emitted by the Engine.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's background dispatcher.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers audit events to a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON event per line.
type JSONWriterSink = audit.JSONWriterSink

// ZerologSink logs audit events through a zerolog.Logger.
type ZerologSink = audit.ZerologSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return audit.NewZerologSink(log)
}
