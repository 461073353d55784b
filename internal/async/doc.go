// Package async tracks the lifecycle of a single in-flight asynchronous
// action: idle -> pending -> resolved or rejected.
//
// An Operation owns the state; a Future is the action itself, already in
// flight when handed to Run. Operations belong to one owning component
// (a screen, a button) and are closed when that owner goes away. Settlements
// that land after Close are discarded, never applied.
package async
