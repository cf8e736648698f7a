/*
Package pool implements the isolated interpreter pool: a fixed-size
set of worker processes that evaluate one verification job apiece,
queueing overflow jobs in FIFO order and restarting any worker that
exits abnormally.

The host (this package) is single-threaded over its own state: all
mutation of the free/busy sets and the queue happens inside one
goroutine reading a command channel, mirroring a single-owner-loop
convention. Workers never share memory with the host; everything
that crosses the process boundary is copied over the wire protocol
in wire.go.
*/
package pool
