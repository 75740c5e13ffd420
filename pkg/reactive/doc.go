// Package reactive implements strand's fine-grained dependency graph:
// it records which effects read which (target, key) pairs and, on write,
// re-invokes exactly the effects subscribed to the changed pair.
//
// Targets are opaque to the engine. An interception layer (a proxy-like
// wrapper, a store, or a hand-written accessor) registers each observable
// object with RegisterTarget, calls Track on every observable read and
// Trigger on every observable mutation, and releases the target with
// ReleaseTarget when its owner is done with it. The engine never holds
// the application object itself, only its id, so the registry cannot
// extend the target's lifetime.
//
// Effects are the unit of computation. A direct effect re-runs
// synchronously inside the Trigger call that invalidated it; an effect
// configured with WithDeferredInvoke hands its invocation to a handler
// instead, which is how computed values defer recomputation and how the
// scheduler package batches re-runs.
package reactive
