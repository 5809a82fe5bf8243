// Package broker implements pub/sub fan-out of normalized stream chunks.
// A provider produces one chunk channel per turn; publishing that channel
// into a topic lets any number of consumers (UIs, recorders, relays) follow
// the turn without coupling to the provider.
//
// Two implementations share the same interfaces: Local distributes in
// process through buffered channels, NATS distributes across processes by
// serializing chunks with provider.MarshalChunk. Both key topics by an
// arbitrary string, usually the turn id.
//
// Subscriptions carry their own context; cancelling it stops delivery. The
// local broker additionally drops subscribers whose buffer stays full past
// the slow-subscriber timeout, so one stalled consumer cannot hold back a
// live stream.
package broker
