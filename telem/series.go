// Package telem provides the typed sample buffers (Series) and per-output
// (Value) pairs that the runtime's State store allocates one of per node
// output slot, plus Frame, the host-facing ingestion unit.
package telem

import (
	"time"

	"github.com/arcrt/arc/ir"
)

// Alignment is a monotonically increasing position marker on a channel's
// sample stream, used as the high-water mark for de-duplicating already
// delivered samples. It is not a timestamp: two channels can share an
// alignment space while advancing at different wall-clock rates.
type Alignment uint64

// Series is a typed, resizable, scalar-indexable sample buffer. Series
// are never shared across goroutines in this implementation: each one is
// owned by exactly the State map entry (or NodeHandle aligned-input slot)
// that references it, and Go's garbage collector — not a manual refcount
// — reclaims it once unreferenced. See DESIGN.md's resolution of the
// source's "non-atomic local-shared pointer" design note.
type Series struct {
	Type DataType

	// exactly one of the following slices is populated, selected by Type.
	int64s   []int64
	uint8s   []uint8
	uint64s  []uint64
	float32s []float32
	float64s []float64
	strings  []string

	// Alignment is the position, in the channel's sample stream, of the
	// first element of this series. It only carries meaning for series
	// produced by channel ingestion and for the timestamp series
	// synthesized for an unindexed channel, which copies the alignment of
	// the data it accompanies; other synthesized series leave it at 0.
	Alignment Alignment
}

// DataType re-exports ir.DataType so callers working with telem do not
// need to import ir solely for the type enum.
type DataType = ir.DataType

const (
	Int8    = ir.Int8
	Int16   = ir.Int16
	Int32   = ir.Int32
	Int64   = ir.Int64
	Uint8   = ir.Uint8
	Uint16  = ir.Uint16
	Uint32  = ir.Uint32
	Uint64  = ir.Uint64
	Float32 = ir.Float32
	Float64 = ir.Float64
	String  = ir.StringT
	Timestamp = ir.TimestampT
)

// NewSeries returns an empty series of the given type.
func NewSeries(t DataType) *Series {
	return &Series{Type: t}
}

// Len returns the number of elements in the series.
func (s *Series) Len() int {
	switch s.Type {
	case Int8, Int16, Int32, Int64:
		return len(s.int64s)
	case Uint8:
		return len(s.uint8s)
	case Uint16, Uint32, Uint64, Timestamp:
		return len(s.uint64s)
	case Float32:
		return len(s.float32s)
	case Float64:
		return len(s.float64s)
	case String:
		return len(s.strings)
	default:
		return 0
	}
}

// Resize truncates or zero-extends the series to n elements.
func (s *Series) Resize(n int) {
	switch s.Type {
	case Int8, Int16, Int32, Int64:
		s.int64s = resize(s.int64s, n)
	case Uint8:
		s.uint8s = resize(s.uint8s, n)
	case Uint16, Uint32, Uint64, Timestamp:
		s.uint64s = resize(s.uint64s, n)
	case Float32:
		s.float32s = resize(s.float32s, n)
	case Float64:
		s.float64s = resize(s.float64s, n)
	case String:
		s.strings = resize(s.strings, n)
	}
}

func resize[T any](s []T, n int) []T {
	if n <= len(s) {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

// SetInt64 sets an integer-typed element.
func (s *Series) SetInt64(i int, v int64) { s.int64s[i] = v }

// Int64 returns an integer-typed element.
func (s *Series) Int64(i int) int64 { return s.int64s[i] }

// SetUint8 sets a uint8-typed element.
func (s *Series) SetUint8(i int, v uint8) { s.uint8s[i] = v }

// Uint8 returns a uint8-typed element.
func (s *Series) Uint8(i int) uint8 { return s.uint8s[i] }

// SetUint64 sets a uint64/timestamp-typed element.
func (s *Series) SetUint64(i int, v uint64) { s.uint64s[i] = v }

// Uint64 returns a uint64/timestamp-typed element.
func (s *Series) Uint64(i int) uint64 { return s.uint64s[i] }

// SetFloat32 sets a float32-typed element.
func (s *Series) SetFloat32(i int, v float32) { s.float32s[i] = v }

// Float32 returns a float32-typed element.
func (s *Series) Float32(i int) float32 { return s.float32s[i] }

// SetFloat64 sets a float64-typed element.
func (s *Series) SetFloat64(i int, v float64) { s.float64s[i] = v }

// Float64 returns a float64-typed element.
func (s *Series) Float64(i int) float64 { return s.float64s[i] }

// SetString sets a string-typed element.
func (s *Series) SetString(i int, v string) { s.strings[i] = v }

// String returns a string-typed element.
func (s *Series) String(i int) string { return s.strings[i] }

// SetTimestamp sets a timestamp element, stored as unix nanoseconds.
func (s *Series) SetTimestamp(i int, t time.Time) { s.uint64s[i] = uint64(t.UnixNano()) }

// TimestampNanos returns a timestamp element as unix nanoseconds.
func (s *Series) TimestampNanos(i int) uint64 { return s.uint64s[i] }

// Clone deep-copies the series, matching the "deep-copies data and its
// time series into output slot" requirement of the on node.
func (s *Series) Clone() *Series {
	cp := &Series{Type: s.Type, Alignment: s.Alignment}
	cp.int64s = append([]int64(nil), s.int64s...)
	cp.uint8s = append([]uint8(nil), s.uint8s...)
	cp.uint64s = append([]uint64(nil), s.uint64s...)
	cp.float32s = append([]float32(nil), s.float32s...)
	cp.float64s = append([]float64(nil), s.float64s...)
	cp.strings = append([]string(nil), s.strings...)
	return cp
}

// IsTruthy implements the truthy predicate from §4.2: the last element of
// a Series is nonzero (numerics), non-empty (strings), or has nonzero
// nanoseconds (timestamps); an empty series is falsy.
func (s *Series) IsTruthy() bool {
	n := s.Len()
	if n == 0 {
		return false
	}
	last := n - 1
	switch s.Type {
	case Int8, Int16, Int32, Int64:
		return s.int64s[last] != 0
	case Uint8:
		return s.uint8s[last] != 0
	case Uint16, Uint32, Uint64:
		return s.uint64s[last] != 0
	case Timestamp:
		return s.uint64s[last] != 0
	case Float32:
		return s.float32s[last] != 0
	case Float64:
		return s.float64s[last] != 0
	case String:
		return s.strings[last] != ""
	default:
		return false
	}
}

// Value is a node output slot: its data series paired with its time
// series. They always share the same length after a node's next() call
// returns, per spec §3's invariant.
type Value struct {
	Data *Series
	Time *Series
}

// NewValue returns a zero-length Value of the given data type, with a
// Timestamp-typed time series.
func NewValue(dataType DataType) *Value {
	return &Value{Data: NewSeries(dataType), Time: NewSeries(Timestamp)}
}

// ChannelSample pairs a channel key with the series a node wrote to it,
// for the write buffers the host drains at tick end.
type ChannelSample struct {
	Channel ir.ChannelKey
	Data    *Series
	Time    *Series
}

// Frame is the per-tick ingestion unit: one series pair per channel the
// host is delivering samples for.
type Frame struct {
	Channels map[ir.ChannelKey]ChannelSample
}

// NewFrame returns an empty Frame.
func NewFrame() Frame {
	return Frame{Channels: make(map[ir.ChannelKey]ChannelSample)}
}
