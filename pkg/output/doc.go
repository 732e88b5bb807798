/*
Package output implements the Bridge output ring buffer.

The buffer is a fixed-capacity FIFO log of human-readable diagnostic lines
(default 1000). Every subsystem writes its protocol traces, broadcast
failures and eval script logs here, making the buffer a unified diagnostic
surface that remote clients can read through the getOutput method.

Once the buffer is full the oldest line is evicted on each append; the
retained window is always the most recent Capacity() lines in insertion
order. The buffer is owned by the server handle for the lifetime of the
process and guarded by a mutex so any connection goroutine may append.
*/
package output
