// Package event provides the small in-process event primitives used by the
// detector and the wallet strategies.
//
// # Main Types
//
//   - [Emitter]: multi-fire, synchronous emitter with subscription ids
//   - [Signal]: single-shot broadcast used for "detect"
//
// # Delivery
//
// Handlers are called synchronously on the emitting goroutine, in the
// order they were registered. A panicking handler is recovered and logged
// so it cannot stop delivery to the others.
//
// A [Signal] only reaches handlers registered before it fires:
//
//	sig := event.NewSignal("detect")
//	sig.On(func() { log.Println("detected") }) // called
//	sig.Fire()
//	sig.On(func() { log.Println("late") })     // never called
package event
