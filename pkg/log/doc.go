/*
Package log provides structured logging for the worker using zerolog.

A single package-level Logger is configured once via Init and used from
every other package in this module. Context helpers (WithDigest,
WithInstanceID, WithAction) return child loggers that carry the relevant
identifier on every subsequent line, matching the fields worker log
consumers use to correlate a request across fetch, container, and reaper
events.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	l := log.WithDigest(digest)
	l.Info().Msg("fetched artifact")
*/
package log
