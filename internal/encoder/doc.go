// Package encoder writes archived event batches to Parquet or Avro files.
//
// Each row carries the event header (id, category, variant, source, event
// time), the attributes as a JSON object, the payload as JSON, the estimated
// in-memory size and the ingestion time.
//
//	factory := encoder.NewFactory(event.FormatParquet, "snappy")
//	enc, err := factory.CreateEncoder()
//	if err != nil {
//	    return err
//	}
//	stats, err := enc.Encode(path, records)
//
// Compression:
//
//	Parquet: snappy (default), gzip, lz4, zstd, none
//	Avro:    gzip (default, whole-file), none
//
// Encoders hold no per-call state and may be shared.
package encoder
