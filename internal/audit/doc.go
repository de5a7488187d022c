// Package audit relays login, refresh, logout, password and registration
// outcomes to a Sink off the request path.
//
// The Engine decides which events exist and fills them in; this package only
// buffers and delivers. Sinks: NoOpSink, ChannelSink (tests), JSONWriterSink
// (one JSON object per line) and ZerologSink.
//
// Events never carry passwords, tokens or password hashes. The package must not
// import fangauth.
package audit
