// Package objcontext implements the object context: the identity map,
// change tracking and query pipeline that sit between application code and
// a DataChannel.
//
// A top-level Context talks to the data domain. A child context created
// with NewChildContext uses its parent as the channel: its queries run
// through the parent's pipeline and its commits are applied to the parent.
//
// QUERY PIPELINE:
//
// Every query runs through a QueryAction. The action tries, in order:
//
//  1. the object id shortcut (registered, loaded object);
//  2. the relationship shortcut (resolved in-memory relationship);
//  3. the refresh, internal and paginated hooks;
//  4. the local query cache, only for queries this context originated;
//  5. the channel.
//
// Objects produced for a different context than the one running the
// action are merged into that context before they are returned.
//
// Detach copies an object graph out of a context along a prefetch tree.
package objcontext
