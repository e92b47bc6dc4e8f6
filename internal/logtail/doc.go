// Package logtail reads the console's own log file for the logs view.
//
// # Reading
//
// Read returns the last N lines of a file using a ring buffer, so memory is
// bounded by N rather than by the file size. A missing file reads as empty;
// the log file is created lazily on the first write.
//
//	lines, err := logtail.Read(cfg.LogFile, 2000)
//
// # Decoding
//
// The console logs through slog.JSONHandler. Parse turns one such line into
// an Entry (time, level, message, component and the remaining attributes in
// key order). Lines that are not JSON, such as a panic trace, are kept as
// info entries so they stay visible.
//
// # Filtering
//
// Filter selects entries by minimum level, component and free text. Text
// matching is case-insensitive over the message, component and attributes.
//
//	f := logtail.Filter{MinLevel: slog.LevelWarn, Component: "collection"}
//	for _, e := range f.Apply(logtail.ParseLines(lines)) {
//		fmt.Println(logtail.Format(e))
//	}
package logtail
