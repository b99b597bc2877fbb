package scanner

import "github.com/boscod/scanpresence/internal/capture"

// NopDecoder never recognizes anything. Used when no server-side decoder
// bridge is attached and all decoded codes arrive from the UI shell over the
// scan API.
type NopDecoder struct{}

func (NopDecoder) Decode(frame capture.Frame) (string, bool) { return "", false }

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(frame capture.Frame) (string, bool)

func (f DecoderFunc) Decode(frame capture.Frame) (string, bool) { return f(frame) }
