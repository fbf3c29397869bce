package encoder

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/eventbuffer/pkg/encoder"
	"github.com/jittakal/eventbuffer/pkg/event"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*ParquetEncoder)(nil)

// EventParquet is the Parquet row for an archived event.
// Time columns use TIMESTAMP_MICROS for Athena compatibility.
type EventParquet struct {
	ID         string     `parquet:"id,dict"`
	Category   string     `parquet:"category,dict"`
	Variant    string     `parquet:"variant,dict"`
	Source     string     `parquet:"source,dict"`
	EventTime  *time.Time `parquet:"event_time,timestamp(microsecond),optional"`
	Attributes *string    `parquet:"attributes,optional"`
	Data       string     `parquet:"data"`
	SizeBytes  int64      `parquet:"size_bytes"`
	IngestedAt time.Time  `parquet:"ingested_at,timestamp(microsecond)"`
}

// ParquetEncoder implements encoder.Encoder for Apache Parquet columnar format.
// Supports SNAPPY (default), GZIP, LZ4, ZSTD and uncompressed output.
type ParquetEncoder struct {
	compressionName string
}

// NewParquetEncoder creates a new Parquet encoder with specified compression.
func NewParquetEncoder(compression string) *ParquetEncoder {
	return &ParquetEncoder{
		compressionName: compression,
	}
}

// compressionCodec converts string compression name to parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch compression {
	case "snappy", "SNAPPY":
		return parquet.Compression(&parquet.Snappy)
	case "gzip", "GZIP":
		return parquet.Compression(&parquet.Gzip)
	case "lz4", "LZ4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd", "ZSTD":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "UNCOMPRESSED", "none", "NONE":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// Encode writes records to a Parquet file.
func (e *ParquetEncoder) Encode(filePath string, records []event.Record) (*event.FileStats, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to encode")
	}

	rows := make([]EventParquet, len(records))
	for i, record := range records {
		row, err := toParquetRow(record)
		if err != nil {
			return nil, fmt.Errorf("failed to convert record %d: %w", i, err)
		}
		rows[i] = row
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	writer := parquet.NewGenericWriter[EventParquet](
		file,
		parquet.SchemaOf(new(EventParquet)),
		compressionCodec(e.compressionName),
		parquet.CreatedBy("event-buffer", "1.0", "0"),
	)

	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		file.Close()
		return nil, fmt.Errorf("failed to write records: %w", err)
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	// Close before stat so the size includes the footer.
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return fileStats(filePath, records)
}

func toParquetRow(record event.Record) (EventParquet, error) {
	row := EventParquet{
		ID:         record.ID,
		Category:   string(record.Category),
		Variant:    record.Variant,
		Source:     record.Source,
		Data:       string(record.Data),
		SizeBytes:  int64(record.SizeBytes),
		IngestedAt: record.IngestedAt,
	}

	if !record.EventTime.IsZero() {
		t := record.EventTime
		row.EventTime = &t
	}

	attrs, err := encodeAttributes(record.Attributes)
	if err != nil {
		return EventParquet{}, err
	}
	row.Attributes = attrs

	return row, nil
}

// encodeAttributes renders attributes as a JSON object, or nil when empty.
func encodeAttributes(attrs map[string]string) (*string, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	s := string(data)
	return &s, nil
}

func fileStats(filePath string, records []event.Record) (*event.FileStats, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	first, last := records[0].IngestedAt, records[0].IngestedAt
	for _, r := range records[1:] {
		if r.IngestedAt.Before(first) {
			first = r.IngestedAt
		}
		if r.IngestedAt.After(last) {
			last = r.IngestedAt
		}
	}

	return &event.FileStats{
		RecordCount:    len(records),
		SizeBytes:      fileInfo.Size(),
		FirstWriteTime: first,
		LastWriteTime:  last,
	}, nil
}

// Format returns the file format.
func (e *ParquetEncoder) Format() event.FileFormat {
	return event.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}
