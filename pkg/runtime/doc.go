/*
Package runtime wraps the container library behind a small interface
(build/start/load/status/delete/bundle) so the orchestrator can be
tested against a fake instead of a real runc binary. RuncRuntime is the
production implementation, driving runc directly against bare extracted
rootfs trees — there is no image registry or containerd daemon in this
system, only bundle directories the registry client has already
materialized on disk.
*/
package runtime
