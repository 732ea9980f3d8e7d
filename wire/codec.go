// Package wire implements the length-prefixed binary framing the tracker
// speaks over Export/Integrate: a sequence of frames, each an insertion
// or a deletion, in the order the issuing replica applied them.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unicode/utf8"
)

// Kind tags a frame's payload.
type Kind byte

const (
	KindInsertion Kind = 1
	KindDeletion  Kind = 2
)

// ErrMalformedFrame is returned by Decode when a frame fails framing or
// UTF-8 decoding. Callers should treat everything decoded before the
// error as the prefix that was safely applied.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// ID is the wire rendering of an identifier anchor.
type ID struct {
	Client  uint64
	Counter uint32
}

// Insertion is one run of newly-seen characters, with its origin anchors.
type Insertion struct {
	Client       uint64
	CounterStart uint32
	OriginLeft   *ID
	OriginRight  *ID
	Text         string
}

// Deletion names a delete call: its own (op_client, op_counter) identity,
// plus the content range it targets.
type Deletion struct {
	OpClient    uint64
	OpCounter   uint32
	Client      uint64
	CounterFrom uint32
	CounterTo   uint32
}

// Op is a single frame: exactly one of Insertion or Deletion is non-nil.
type Op struct {
	Insertion *Insertion
	Deletion  *Deletion
}

// Encode renders ops as a sequence of length-prefixed frames.
func Encode(ops []Op) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		payload := encodePayload(op)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		buf.Write(lenBuf[:])
		buf.Write(payload)
	}
	return buf.Bytes()
}

func encodePayload(op Op) []byte {
	var buf bytes.Buffer
	switch {
	case op.Insertion != nil:
		ins := op.Insertion
		buf.WriteByte(byte(KindInsertion))
		writeUint64(&buf, ins.Client)
		writeUint32(&buf, ins.CounterStart)
		writeUint32(&buf, uint32(utf8.RuneCountInString(ins.Text)))
		writeOptionalID(&buf, ins.OriginLeft)
		writeOptionalID(&buf, ins.OriginRight)
		buf.WriteString(ins.Text)
	case op.Deletion != nil:
		del := op.Deletion
		buf.WriteByte(byte(KindDeletion))
		writeUint64(&buf, del.OpClient)
		writeUint32(&buf, del.OpCounter)
		writeUint64(&buf, del.Client)
		writeUint32(&buf, del.CounterFrom)
		writeUint32(&buf, del.CounterTo)
	default:
		panic("wire: empty op")
	}
	return buf.Bytes()
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeOptionalID(buf *bytes.Buffer, id *ID) {
	if id == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeUint64(buf, id.Client)
	writeUint32(buf, id.Counter)
}

// Decode parses a byte stream produced by Encode. On a malformed frame it
// returns the ops successfully parsed so far alongside ErrMalformedFrame,
// so the caller can apply the valid prefix and stop there.
func Decode(b []byte) ([]Op, error) {
	var ops []Op
	r := bytes.NewReader(b)
	for r.Len() > 0 {
		op, err := decodeFrame(r)
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func decodeFrame(r *bytes.Reader) (Op, error) {
	var lenBuf [4]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return Op{}, ErrMalformedFrame
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := readFull(r, payload); err != nil {
		return Op{}, ErrMalformedFrame
	}
	return decodePayload(payload)
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func decodePayload(payload []byte) (Op, error) {
	pr := bytes.NewReader(payload)
	kindByte, err := pr.ReadByte()
	if err != nil {
		return Op{}, ErrMalformedFrame
	}
	switch Kind(kindByte) {
	case KindInsertion:
		return decodeInsertion(pr)
	case KindDeletion:
		return decodeDeletion(pr)
	default:
		return Op{}, ErrMalformedFrame
	}
}

func decodeInsertion(r *bytes.Reader) (Op, error) {
	client, err := readUint64(r)
	if err != nil {
		return Op{}, err
	}
	counterStart, err := readUint32(r)
	if err != nil {
		return Op{}, err
	}
	length, err := readUint32(r)
	if err != nil {
		return Op{}, err
	}
	originLeft, err := readOptionalID(r)
	if err != nil {
		return Op{}, err
	}
	originRight, err := readOptionalID(r)
	if err != nil {
		return Op{}, err
	}
	rest := make([]byte, r.Len())
	if _, err := readFull(r, rest); err != nil {
		return Op{}, ErrMalformedFrame
	}
	if !utf8.Valid(rest) {
		return Op{}, ErrMalformedFrame
	}
	if utf8.RuneCount(rest) != int(length) {
		return Op{}, ErrMalformedFrame
	}
	return Op{Insertion: &Insertion{
		Client:       client,
		CounterStart: counterStart,
		OriginLeft:   originLeft,
		OriginRight:  originRight,
		Text:         string(rest),
	}}, nil
}

func decodeDeletion(r *bytes.Reader) (Op, error) {
	opClient, err := readUint64(r)
	if err != nil {
		return Op{}, err
	}
	opCounter, err := readUint32(r)
	if err != nil {
		return Op{}, err
	}
	client, err := readUint64(r)
	if err != nil {
		return Op{}, err
	}
	from, err := readUint32(r)
	if err != nil {
		return Op{}, err
	}
	to, err := readUint32(r)
	if err != nil {
		return Op{}, err
	}
	if r.Len() != 0 {
		return Op{}, ErrMalformedFrame
	}
	return Op{Deletion: &Deletion{
		OpClient: opClient, OpCounter: opCounter,
		Client: client, CounterFrom: from, CounterTo: to,
	}}, nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, ErrMalformedFrame
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, ErrMalformedFrame
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readOptionalID(r *bytes.Reader) (*ID, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, ErrMalformedFrame
	}
	if tag == 0 {
		return nil, nil
	}
	client, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	counter, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	return &ID{Client: client, Counter: counter}, nil
}
