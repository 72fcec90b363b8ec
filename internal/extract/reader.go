package extract

// reader.go wraps downloaded text before it is parsed:
//
//   - bomReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF), which Excel
//     exports put in front of the first header name
//   - utf8Reader replaces invalid UTF-8 bytes with '?'
//   - countingReader tracks bytes read for download logging
//
// Everything works on a stream so large objects are never copied twice.

import (
	"io"
	"unicode/utf8"
)

// newTextReader strips the BOM and then sanitises UTF-8.
func newTextReader(r io.Reader) io.Reader {
	return newUTF8Reader(&bomReader{r: r})
}

// bomReader removes a UTF-8 BOM from the start of the stream.
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte // bytes read while checking that were not a BOM
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if n < 3 || buf != [3]byte{0xEF, 0xBB, 0xBF} {
			b.head = append(b.head, buf[:n]...)
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Reader replaces invalid UTF-8 bytes with '?'. A multi-byte sequence
// split across two reads is held back until it is complete.
type utf8Reader struct {
	r       io.Reader
	out     []byte // sanitised bytes not yet returned
	tail    []byte // incomplete sequence carried into the next read
	err     error
	scratch [4096]byte
}

func newUTF8Reader(r io.Reader) *utf8Reader {
	return &utf8Reader{r: r}
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	for len(u.out) == 0 {
		if u.err != nil {
			return 0, u.err
		}
		n, err := u.r.Read(u.scratch[:])
		data := append(u.tail, u.scratch[:n]...)
		u.tail = nil
		u.err = err
		u.out = u.sanitize(data, err != nil)
		if n == 0 && err == nil {
			return 0, nil
		}
	}

	n := copy(p, u.out)
	u.out = u.out[n:]
	return n, nil
}

// sanitize rewrites data in place and returns the bytes to emit.
// Unless atEOF, an incomplete trailing sequence is moved to tail.
func (u *utf8Reader) sanitize(data []byte, atEOF bool) []byte {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}

		if !atEOF && !utf8.FullRune(data[read:]) {
			u.tail = append([]byte(nil), data[read:]...)
			break
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return data[:write]
}

// countingReader tracks bytes read.
type countingReader struct {
	r         io.Reader
	bytesRead int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.bytesRead += int64(n)
	return n, err
}
