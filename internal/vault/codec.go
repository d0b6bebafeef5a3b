package vault

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec turns values into compact bytes and back: JSON, then zstd.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec. level is one of fastest, default, better, best.
func NewCodec(level string) (*Codec, error) {
	encLevel, ok := encoderLevel(level)
	if !ok {
		return nil, fmt.Errorf("unknown compression level %q", level)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// Marshal encodes v.
func (c *Codec) Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return c.encoder.EncodeAll(raw, nil), nil
}

// Unmarshal decodes data produced by Marshal into v.
func (c *Codec) Unmarshal(data []byte, v any) error {
	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("failed to decompress: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// Close releases the decoder's goroutines.
func (c *Codec) Close() {
	c.decoder.Close()
}

func encoderLevel(name string) (zstd.EncoderLevel, bool) {
	switch name {
	case "fastest":
		return zstd.SpeedFastest, true
	case "", "default":
		return zstd.SpeedDefault, true
	case "better":
		return zstd.SpeedBetterCompression, true
	case "best":
		return zstd.SpeedBestCompression, true
	}
	return 0, false
}
