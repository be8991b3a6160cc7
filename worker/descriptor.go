package worker

import (
	"errors"

	"github.com/mitchellh/mapstructure"
	"github.com/vx-labs/shuffle/shuffle"
)

// Spec is the generic structured record a shard description is transmitted as.
type Spec map[string]interface{}

const (
	PropertyType                 = "@type"
	PropertyFilename             = "filename"
	PropertyLocator              = "locator"
	PropertyStartOffset          = "start_offset"
	PropertyEndOffset            = "end_offset"
	PropertyStartShufflePosition = "start_shuffle_position"
	PropertyEndShufflePosition   = "end_shuffle_position"
)

type rawDescriptor struct {
	Format               string `mapstructure:"@type"`
	Filename             string `mapstructure:"filename"`
	Locator              string `mapstructure:"locator"`
	StartOffset          *int64 `mapstructure:"start_offset"`
	EndOffset            *int64 `mapstructure:"end_offset"`
	StartShufflePosition string `mapstructure:"start_shuffle_position"`
	EndShufflePosition   string `mapstructure:"end_shuffle_position"`
}

// ShardDescriptor describes one input shard. It is immutable.
type ShardDescriptor struct {
	format        string
	locator       string
	startOffset   *int64
	endOffset     *int64
	startPosition shuffle.Position
	endPosition   shuffle.Position
}

func (d ShardDescriptor) Format() string  { return d.format }
func (d ShardDescriptor) Locator() string { return d.locator }

func (d ShardDescriptor) StartOffset() (int64, bool) {
	if d.startOffset == nil {
		return 0, false
	}
	return *d.startOffset, true
}
func (d ShardDescriptor) EndOffset() (int64, bool) {
	if d.endOffset == nil {
		return 0, false
	}
	return *d.endOffset, true
}
func (d ShardDescriptor) StartPosition() shuffle.Position { return d.startPosition }
func (d ShardDescriptor) EndPosition() shuffle.Position   { return d.endPosition }

// Spec serializes the descriptor back to its generic record form.
func (d ShardDescriptor) Spec() Spec {
	out := Spec{
		PropertyType:     d.format,
		PropertyFilename: d.locator,
	}
	if v, ok := d.StartOffset(); ok {
		out[PropertyStartOffset] = v
	}
	if v, ok := d.EndOffset(); ok {
		out[PropertyEndOffset] = v
	}
	if !d.startPosition.IsZero() {
		out[PropertyStartShufflePosition] = d.startPosition.EncodeBase64()
	}
	if !d.endPosition.IsZero() {
		out[PropertyEndShufflePosition] = d.endPosition.EncodeBase64()
	}
	return out
}

// WithEndPosition returns a copy of d bounded by end, as used for the primary
// part of a split.
func (d ShardDescriptor) WithEndPosition(end shuffle.Position) ShardDescriptor {
	d.endPosition = end
	return d
}

// WithStartPosition returns a copy of d starting at start, as used for the
// residual part of a split.
func (d ShardDescriptor) WithStartPosition(start shuffle.Position) ShardDescriptor {
	d.startPosition = start
	return d
}

// ParseDescriptor decodes and validates a shard description.
func ParseDescriptor(spec Spec) (ShardDescriptor, error) {
	raw := rawDescriptor{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return ShardDescriptor{}, err
	}
	if err := decoder.Decode(map[string]interface{}(spec)); err != nil {
		return ShardDescriptor{}, &InvalidDescriptorError{Reason: "malformed record", Err: err}
	}
	d := ShardDescriptor{
		format:      raw.Format,
		locator:     raw.Filename,
		startOffset: raw.StartOffset,
		endOffset:   raw.EndOffset,
	}
	if d.locator == "" {
		d.locator = raw.Locator
	}
	if d.format == "" {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyType, Reason: "missing format"}
	}
	if d.locator == "" {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyFilename, Reason: "missing locator"}
	}
	if d.startOffset != nil && *d.startOffset < 0 {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyStartOffset, Reason: "negative offset"}
	}
	if d.endOffset != nil && *d.endOffset < 0 {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyEndOffset, Reason: "negative offset"}
	}
	if d.startOffset != nil && d.endOffset != nil && *d.startOffset > *d.endOffset {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyStartOffset, Reason: "start offset is after end offset"}
	}
	d.startPosition, err = shuffle.FromBase64(raw.StartShufflePosition)
	if err != nil {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyStartShufflePosition, Err: err}
	}
	d.endPosition, err = shuffle.FromBase64(raw.EndShufflePosition)
	if err != nil {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyEndShufflePosition, Err: err}
	}
	if !d.startPosition.IsZero() && !d.endPosition.IsZero() && d.startPosition.Compare(d.endPosition) > 0 {
		return ShardDescriptor{}, &InvalidDescriptorError{Field: PropertyStartShufflePosition, Reason: "start position is after end position"}
	}
	return d, nil
}

// IsInvalidDescriptor reports whether err is an InvalidDescriptorError.
func IsInvalidDescriptor(err error) bool {
	var target *InvalidDescriptorError
	return errors.As(err, &target)
}
