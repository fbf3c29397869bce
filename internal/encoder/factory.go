package encoder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jittakal/eventbuffer/pkg/encoder"
	"github.com/jittakal/eventbuffer/pkg/event"
)

var compressions = map[event.FileFormat][]string{
	event.FormatParquet: {"none", "uncompressed", "snappy", "gzip", "lz4", "zstd"},
	event.FormatAvro:    {"none", "uncompressed", "gzip"},
}

// Factory builds encoders for one archive format. Writers call it once per
// file so encoders never share state across uploads.
type Factory struct {
	format      event.FileFormat
	compression string
}

// NewFactory creates an encoder factory. An empty compression selects the
// format default.
func NewFactory(format event.FileFormat, compression string) *Factory {
	if compression == "" {
		compression = DefaultCompression(format)
	}
	return &Factory{
		format:      format,
		compression: strings.ToLower(compression),
	}
}

// CreateEncoder creates an encoder for the configured format.
func (f *Factory) CreateEncoder() (encoder.Encoder, error) {
	if err := ValidateCompression(f.format, f.compression); err != nil {
		return nil, err
	}
	switch f.format {
	case event.FormatParquet:
		return NewParquetEncoder(f.compression), nil
	case event.FormatAvro:
		return NewAvroEncoder(f.compression)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", f.format)
	}
}

// SupportedFormats returns the archive formats in preference order.
func SupportedFormats() []event.FileFormat {
	return []event.FileFormat{event.FormatParquet, event.FormatAvro}
}

// ValidateCompression reports whether format can be written with compression.
func ValidateCompression(format event.FileFormat, compression string) error {
	supported, ok := compressions[format]
	if !ok {
		return fmt.Errorf("unsupported file format: %s", format)
	}
	if compression != "" && !slices.Contains(supported, strings.ToLower(compression)) {
		return fmt.Errorf("unsupported %s compression: %s", format, compression)
	}
	return nil
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format event.FileFormat) string {
	switch format {
	case event.FormatParquet:
		return "snappy"
	case event.FormatAvro:
		return "gzip"
	default:
		return "none"
	}
}
