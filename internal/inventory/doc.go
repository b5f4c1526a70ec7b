// Package inventory is the synchronization core of devsync.
//
// A Synchronizer owns the in-memory device collection. Local operations
// (LoadAll, Create, Update, Delete) go through the REST backend first and
// touch the collection only after the backend confirms. Each confirmed
// mutation is then published to peers over the hub channel.
//
// Peer events arrive through HandleEvent and apply the same mutations
// without any outbound request and without re-publishing. Events this
// instance published itself are recognised by their origin and dropped.
//
// Every local attempt ends in exactly one success or failure Notification.
// Every peer event that changed the collection ends in exactly one remote
// Notification.
//
// Publishing is best-effort: when the channel is down the local operation
// still succeeds and the event is lost. Peers converge on their next LoadAll.
package inventory
