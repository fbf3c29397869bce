package encoder

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/eventbuffer/pkg/encoder"
	"github.com/jittakal/eventbuffer/pkg/event"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*AvroEncoder)(nil)

// AvroEncoder implements encoder.Encoder for Avro Object Container Files,
// optionally gzip-compressed.
type AvroEncoder struct {
	codec       *goavro.Codec
	compression string
}

// NewAvroEncoder creates a new Avro encoder with specified compression.
func NewAvroEncoder(compression string) (*AvroEncoder, error) {
	codec, err := goavro.NewCodec(avroSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}

	return &AvroEncoder{
		codec:       codec,
		compression: compression,
	}, nil
}

const avroSchema = `{
	"type": "record",
	"name": "ArchivedEvent",
	"namespace": "io.eventbuffer",
	"fields": [
		{"name": "id", "type": "string"},
		{"name": "category", "type": "string"},
		{"name": "variant", "type": "string"},
		{"name": "source", "type": "string"},
		{"name": "event_time", "type": ["null", "string"], "default": null},
		{"name": "attributes", "type": ["null", "string"], "default": null},
		{"name": "data", "type": "string"},
		{"name": "size_bytes", "type": "long"},
		{"name": "ingested_at", "type": "string"}
	]
}`

func (e *AvroEncoder) gzipped() bool {
	return e.compression == "gzip" || e.compression == "GZIP"
}

// Encode writes records to an Avro file.
func (e *AvroEncoder) Encode(filePath string, records []event.Record) (*event.FileStats, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to encode")
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := e.encode(file, records); err != nil {
		return nil, err
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return fileStats(filePath, records)
}

// EncodeToBytes encodes records to an in-memory Avro container.
func (e *AvroEncoder) EncodeToBytes(records []event.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to encode")
	}

	var buf bytes.Buffer
	if err := e.encode(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *AvroEncoder) encode(w io.Writer, records []event.Record) error {
	var gzipWriter *gzip.Writer
	if e.gzipped() {
		gzipWriter = gzip.NewWriter(w)
		w = gzipWriter
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:     w,
		Codec: e.codec,
	})
	if err != nil {
		return fmt.Errorf("failed to create OCF writer: %w", err)
	}

	for i, record := range records {
		avroMap, err := toAvroMap(record)
		if err != nil {
			return fmt.Errorf("failed to convert record %d: %w", i, err)
		}
		if err := ocfWriter.Append([]interface{}{avroMap}); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if gzipWriter != nil {
		if err := gzipWriter.Close(); err != nil {
			return fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}
	return nil
}

func toAvroMap(record event.Record) (map[string]interface{}, error) {
	avroMap := map[string]interface{}{
		"id":          record.ID,
		"category":    string(record.Category),
		"variant":     record.Variant,
		"source":      record.Source,
		"data":        string(record.Data),
		"size_bytes":  int64(record.SizeBytes),
		"ingested_at": record.IngestedAt.Format(time.RFC3339Nano),
		"event_time":  nil,
		"attributes":  nil,
	}

	if !record.EventTime.IsZero() {
		avroMap["event_time"] = goavro.Union("string", record.EventTime.Format(time.RFC3339Nano))
	}

	attrs, err := encodeAttributes(record.Attributes)
	if err != nil {
		return nil, err
	}
	if attrs != nil {
		avroMap["attributes"] = goavro.Union("string", *attrs)
	}

	return avroMap, nil
}

// Format returns the file format.
func (e *AvroEncoder) Format() event.FileFormat {
	return event.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	if e.gzipped() {
		return ".avro.gz"
	}
	return ".avro"
}
