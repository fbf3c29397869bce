// Package encoder defines how archived event records are turned into files.
package encoder

import "github.com/jittakal/eventbuffer/pkg/event"

// Encoder writes one group of records, all of the same category and variant,
// to a single file.
type Encoder interface {
	// Encode writes records to filePath and reports the record count and
	// size of the file.
	Encode(filePath string, records []event.Record) (*event.FileStats, error)

	Format() event.FileFormat

	// FileExtension includes the leading dot.
	FileExtension() string
}
