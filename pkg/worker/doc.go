/*
Package worker implements the function execution worker: the process
that resolves an action name to a content-addressed digest, materializes
the digest's handler artifact into a rootless Linux container, and
proxies an RPC invocation to the long-lived handler process over a UNIX
domain socket.

# Flow

A single RPC (worker.Execute, served by Server in server.go) drives the
whole pipeline:

	resolve (ControlPlane)     action name -> digest
	get_or_create (Orchestrator, Invocations)
	  cache hit  -> warm handler URL
	  cache miss -> fetch (Registry) -> build (newContainer) -> insert
	ready (waitReady)          poll-connect the handler's socket
	invoke (grpcInvoker)       proxy the request body, return the output

In parallel, Reaper evicts invocations idle past their TTL, tearing down
the underlying container via the same policy newContainer used to build
it.

# Packages involved

Paths (paths.go) computes every on-disk location from a worker root.
BuildRootlessSpec (spec.go) produces the OCI spec for a single user
namespace mapped to the invoking caller. The runtime package drives
go-runc against that spec; this package never talks to go-runc directly
and reaches it only through the runtime.Runtime interface.

Construction is explicit: nothing here reaches for a process-wide
singleton. cmd/noctiforge-worker wires Paths, a runtime.Runtime, a
Registry, a ControlPlane, an Invocations table, an Orchestrator, a
Reaper and a Server together at startup and passes them down.
*/
package worker
