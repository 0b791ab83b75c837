// Package fluentdforward provides a chunk writer for fluentd "Forward" protocol, split into:
//
// - message encoding which packs the logs of one chunk into a Forward message, in one of three modes
//
// - forwardConnection which sends out the messages to upstream fluentd and reads ACKs, and handles auth
//
// Connection management and retries are left to baseoutput.SyncClient and the buffered output.
package fluentdforward
