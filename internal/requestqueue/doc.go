// Package requestqueue provides an in-memory registry of outstanding network
// requests that supports bulk or targeted cancellation.
//
// # Purpose
//
// Client layers (HTTP, Socket.IO) register a Handle when a request starts and
// delete it when the request finishes. Anything that needs to abort work, such
// as an operator command or a session shutdown, cancels by id or cancels
// everything that is still in flight.
//
// # Characteristics
//
//   - **Ordered:** Handles are kept in insertion order and every read returns
//     them in that order.
//   - **Duplicates allowed:** Ids are a caller convention. Several handles may
//     share an id unless the queue is built WithUniqueIDs.
//   - **Ephemeral:** Nothing is persisted. A Queue lives as long as its owner.
//   - **Thread-Safe:** A single mutex guards the slice. Executors are always
//     invoked outside of it, so an executor may call back into the queue.
//
// # Cancellation
//
// Cancel resolves its Target to a snapshot of handles, then for each handle
// deletes its id from the queue and invokes its executor with a Reason
// carrying "<message>: <id>". The first executor failure stops the batch:
// handles processed before it stay removed, the failing handle is removed,
// and handles after it are left untouched. CancelResult reports all three
// groups so callers never have to inspect the queue to learn what happened.
package requestqueue
