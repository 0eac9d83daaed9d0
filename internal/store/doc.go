// Package store archives serialized history states in a BoltDB file.
// Hosts save named state documents, list and reload them across
// processes, and prune the ones they no longer need.
package store
