// Package wire frames the client protocol. Every message is a 12-byte
// little-endian header followed by a CBOR body:
//
//	object u32 | opcode u16 | flags u16 | length u32 | body
//
// Large bodies may be compressed; the flags say how. A compressed body starts
// with its uncompressed length as a u32.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the size of the fixed message header.
	HeaderSize = 12
	// MaxBodySize bounds a single message body on the wire and after
	// decompression.
	MaxBodySize = 64 << 20

	helloSize = 8
	magic     = 0x4b48_4759 // "KHGY"
	// Version is the protocol version exchanged in the hello.
	Version uint32 = 1
)

// Flags describe the body encoding.
type Flags uint16

const (
	FlagLZ4  Flags = 1 << 0
	FlagZstd Flags = 1 << 1
)

var (
	ErrInvalidMagic   = errors.New("wire: invalid magic")
	ErrUnsupportedVer = errors.New("wire: unsupported version")
	ErrTooLarge       = errors.New("wire: message too large")
	ErrShortBody      = errors.New("wire: body shorter than declared length")
	ErrBadFlags       = errors.New("wire: unknown body flags")
)

// Header is the fixed part of a message.
type Header struct {
	Object uint32
	Opcode Opcode
	Flags  Flags
	Length uint32
}

// Message is a decoded frame. Body holds uncompressed CBOR.
type Message struct {
	Object uint32
	Opcode Opcode
	Body   []byte
}

// Decode unmarshals the body into v.
func (m Message) Decode(v any) error {
	if err := Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Opcode, err)
	}
	return nil
}

// WriteHello writes the connection preamble.
func WriteHello(w io.Writer) error {
	var buf [helloSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], Version)
	_, err := w.Write(buf[:])
	return err
}

// ReadHello reads and checks the connection preamble.
func ReadHello(r io.Reader) error {
	var buf [helloSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != magic {
		return ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(buf[4:8]) != Version {
		return ErrUnsupportedVer
	}
	return nil
}

// AppendMessage appends one encoded message to dst. Bodies of at least
// compressThreshold bytes are compressed with comp when that makes them
// smaller.
func AppendMessage(dst []byte, object uint32, op Opcode, body any, comp Compression) ([]byte, error) {
	raw, err := Marshal(body)
	if err != nil {
		return dst, fmt.Errorf("encode %s: %w", op, err)
	}
	payload, flags := compress(raw, comp)
	if len(payload) > MaxBodySize {
		return dst, ErrTooLarge
	}

	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], object)
	binary.LittleEndian.PutUint16(hdr[4:6], uint16(op))
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(flags))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(payload)))
	dst = append(dst, hdr[:]...)
	return append(dst, payload...), nil
}

// WriteMessage encodes and writes one message.
func WriteMessage(w io.Writer, object uint32, op Opcode, body any, comp Compression) error {
	buf, err := AppendMessage(nil, object, op, body, comp)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadHeader reads the fixed header.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	hdr := Header{
		Object: binary.LittleEndian.Uint32(buf[0:4]),
		Opcode: Opcode(binary.LittleEndian.Uint16(buf[4:6])),
		Flags:  Flags(binary.LittleEndian.Uint16(buf[6:8])),
		Length: binary.LittleEndian.Uint32(buf[8:12]),
	}
	if hdr.Length > MaxBodySize {
		return hdr, ErrTooLarge
	}
	return hdr, nil
}

// ReadMessage reads one message and decompresses its body.
func ReadMessage(r io.Reader) (Message, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return Message{}, err
	}
	payload := make([]byte, hdr.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, ErrShortBody
		}
		return Message{}, err
	}
	body, err := decompress(payload, hdr.Flags)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", hdr.Opcode, err)
	}
	return Message{Object: hdr.Object, Opcode: hdr.Opcode, Body: body}, nil
}
