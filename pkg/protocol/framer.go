// Package protocol implements the line framing layer: UTF-8 text frames
// terminated by '\n', with CRLF normalized away on read. Grounded on the
// teacher's buffered-reader-per-connection discipline in
// pkg/server/descriptor.go (bufio.NewReaderSize wrapping net.Conn).
package protocol

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
)

// ErrProtocolViolation is returned by ReadLine when a newline-terminated
// frame is longer than the framer's maxLine bytes. The whole frame is read
// before its length is checked, so a line with no newline is buffered until
// one arrives or the peer closes (then ReadLine returns io.EOF); it is not
// reported as a violation.
var ErrProtocolViolation = errors.New("protocol: oversize line")

// MinBufferBytes is the smallest read buffer a Framer will use, per the
// "at least 2 KiB" requirement on per-session buffers.
const MinBufferBytes = 2048

// Framer reads and writes newline-terminated UTF-8 frames over a net.Conn.
type Framer struct {
	conn    net.Conn
	reader  *bufio.Reader
	maxLine int
}

// NewFramer wraps conn with a buffered reader of at least MinBufferBytes.
// maxLine bounds how large a single frame (including its newline) may be
// before ReadLine reports ErrProtocolViolation; a value <= 0 uses a
// generous default.
func NewFramer(conn net.Conn, maxLine int) *Framer {
	if maxLine <= 0 {
		maxLine = 64 * 1024
	}
	bufSize := MinBufferBytes
	if maxLine > bufSize {
		bufSize = maxLine
	}
	return &Framer{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, bufSize),
		maxLine: maxLine,
	}
}

// ReadLine reads one frame. CR immediately preceding the LF is stripped, as
// is the LF itself. A transport error or clean close propagates unchanged
// so the caller can distinguish PeerClosed/TransportError from
// ErrProtocolViolation.
func (f *Framer) ReadLine() (string, error) {
	line, err := f.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", io.EOF
		}
		if err != io.EOF {
			return "", err
		}
		// EOF with a partial, unterminated line: treat as a closed peer,
		// not a protocol violation — there was no newline to exceed.
		return "", io.EOF
	}
	if len(line) > f.maxLine {
		return "", ErrProtocolViolation
	}
	line = strings.TrimRight(line, "\n")
	line = strings.TrimRight(line, "\r")
	return line, nil
}

// EnsureProtocolNewline appends a trailing '\n' to msg if it doesn't
// already end with one.
func EnsureProtocolNewline(msg string) string {
	if strings.HasSuffix(msg, "\n") {
		return msg
	}
	return msg + "\n"
}

// WriteLine writes msg to the connection, ensuring exactly one trailing
// newline.
func (f *Framer) WriteLine(msg string) error {
	_, err := f.conn.Write([]byte(EnsureProtocolNewline(msg)))
	return err
}
