// Package rle implements the byte-oriented run-length encoding used for
// XCF tile channels.
//
// A stream is a sequence of tokens. The first byte n selects the form:
//
//	0..126   short run of n+1 identical bytes, followed by the byte
//	127      long identical run: u16 length, then the byte
//	128      long verbatim run: u16 length, then that many bytes
//	129..255 short verbatim run of 256-n bytes
package rle

import (
	"errors"

	"github.com/mrjoshuak/go-xcf/internal/bio"
)

// ErrOverrun reports a run whose length crosses past the expected
// sample count of a channel.
var ErrOverrun = errors.New("xcf: rle run exceeds tile data")

// Compress encodes src and returns the token stream. The encoder walks
// maximal runs of identical bytes: a run of three or more, or a pair
// starting while no verbatim bytes are pending, becomes an identical
// run; everything else accumulates verbatim and is flushed when a run
// interrupts it or the input ends.
func Compress(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/128+4)
	var verb []byte

	i := 0
	for i < len(src) {
		j := i + 1
		for j < len(src) && src[j] == src[i] {
			j++
		}
		n := j - i
		if n >= 3 || (n == 2 && len(verb) == 0) {
			out = flushVerbatim(out, verb, false)
			verb = verb[:0]
			out = appendIdentical(out, n, src[i])
		} else {
			verb = append(verb, src[i:j]...)
		}
		i = j
	}
	return flushVerbatim(out, verb, true)
}

// appendIdentical emits identical-run tokens covering n copies of v.
func appendIdentical(dst []byte, n int, v byte) []byte {
	for n > 126 {
		c := n
		if c > 0xffff {
			c = 0xffff
		}
		dst = append(dst, 127, byte(c>>8), byte(c), v)
		n -= c
	}
	if n > 0 {
		dst = append(dst, byte(n-1), v)
	}
	return dst
}

// flushVerbatim emits pending verbatim bytes. A lone byte left at the
// very end of the input is written as an identical run of one, the way
// the reference tool terminates a stream.
func flushVerbatim(dst, verb []byte, atEnd bool) []byte {
	if len(verb) == 0 {
		return dst
	}
	if atEnd && len(verb) == 1 {
		return append(dst, 0, verb[0])
	}
	for len(verb) > 126 {
		c := len(verb)
		if c > 0xffff {
			c = 0xffff
		}
		dst = append(dst, 128, byte(c>>8), byte(c))
		dst = append(dst, verb[:c]...)
		verb = verb[c:]
	}
	if len(verb) > 0 {
		dst = append(dst, byte(256-len(verb)))
		dst = append(dst, verb...)
	}
	return dst
}

// Decompress reads tokens from br until exactly n bytes have been
// produced. It never consumes input past the final token, so channel
// streams concatenated within a tile decode back to back.
func Decompress(br *bio.Reader, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		op, err := br.U8()
		if err != nil {
			return nil, err
		}
		switch {
		case op <= 126:
			v, err := br.U8()
			if err != nil {
				return nil, err
			}
			run := int(op) + 1
			if len(out)+run > n {
				return nil, ErrOverrun
			}
			for k := 0; k < run; k++ {
				out = append(out, v)
			}
		case op == 127:
			run16, err := br.U16()
			if err != nil {
				return nil, err
			}
			v, err := br.U8()
			if err != nil {
				return nil, err
			}
			run := int(run16)
			if len(out)+run > n {
				return nil, ErrOverrun
			}
			for k := 0; k < run; k++ {
				out = append(out, v)
			}
		case op == 128:
			run16, err := br.U16()
			if err != nil {
				return nil, err
			}
			run := int(run16)
			if len(out)+run > n {
				return nil, ErrOverrun
			}
			b, err := br.Bytes(run)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		default:
			run := 256 - int(op)
			if len(out)+run > n {
				return nil, ErrOverrun
			}
			b, err := br.Bytes(run)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}
