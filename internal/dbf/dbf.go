// Package dbf reads dBASE III/IV table files sequentially: header, field
// descriptors, then fixed-width records. Character data is decoded from the
// file's code page into UTF-8; everything else is returned as the raw field
// text so downstream transforms can normalize it.
//
// The package does not interpret values beyond charset decoding. Trimming,
// date reformatting, and logical/numeric conversion belong to the transform
// layer; memo (.dbt) resolution is not supported.
package dbf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Field describes one column of the table as declared in the file header.
type Field struct {
	Name     string
	Type     byte // C, N, F, L, D, I, T, M, ...
	Width    int
	Decimals int
}

// Table reads records from an open DBF file.
type Table struct {
	r      *bufio.Reader
	closer io.Closer

	fields      []Field
	recordCount int
	recordSize  int
	dec         *encoding.Decoder

	buf  []byte // one record, reused across Read calls
	read int    // records consumed so far
}

const (
	headerSize     = 32
	descriptorSize = 32
	fieldNameSize  = 11
	deletedFlag    = '*'
	activeFlag     = ' '
)

var (
	// ErrBadHeader reports a file whose header does not describe a readable
	// dBASE table.
	ErrBadHeader = errors.New("dbf: malformed header")
	// ErrBadRecord reports a record whose bytes violate the declared layout.
	ErrBadRecord = errors.New("dbf: malformed record")
)

// Options adjusts how a table is opened.
type Options struct {
	// Charset overrides the code page declared in the header's language
	// driver byte. Accepted values: cp437, cp850, cp852, cp866, cp1250,
	// cp1251, cp1252. Empty means "trust the header" (defaulting to cp1252
	// for files with no language driver byte).
	Charset string
}

// Open opens the DBF file at path.
func Open(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dbf: open %s: %w", path, err)
	}
	t, err := NewTable(f, opt)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	t.closer = f
	return t, nil
}

// NewTable reads the header and field descriptors from r. The caller keeps
// ownership of r unless the table was produced by Open.
func NewTable(r io.Reader, opt Options) (*Table, error) {
	br := bufio.NewReader(r)

	var hdr [headerSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("dbf: read header: %w", err)
	}

	recordCount := int(binary.LittleEndian.Uint32(hdr[4:8]))
	headerLen := int(binary.LittleEndian.Uint16(hdr[8:10]))
	recordSize := int(binary.LittleEndian.Uint16(hdr[10:12]))
	ldid := hdr[29]

	if recordSize < 1 || headerLen < headerSize+1 {
		return nil, fmt.Errorf("%w: header_len=%d record_len=%d", ErrBadHeader, headerLen, recordSize)
	}

	// Field descriptors occupy the space between the fixed header and the
	// 0x0D terminator.
	nDesc := (headerLen - headerSize - 1) / descriptorSize
	fields := make([]Field, 0, nDesc)
	widthSum := 1 // deletion flag byte
	for i := 0; i < nDesc; i++ {
		var d [descriptorSize]byte
		if _, err := io.ReadFull(br, d[:]); err != nil {
			return nil, fmt.Errorf("dbf: read field descriptor %d: %w", i, err)
		}
		name := d[:fieldNameSize]
		if j := bytes.IndexByte(name, 0); j >= 0 {
			name = name[:j]
		}
		f := Field{
			Name:     strings.ToLower(string(name)),
			Type:     d[11],
			Width:    int(d[16]),
			Decimals: int(d[17]),
		}
		if f.Name == "" || f.Width == 0 {
			return nil, fmt.Errorf("%w: field %d has empty name or zero width", ErrBadHeader, i)
		}
		widthSum += f.Width
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no field descriptors", ErrBadHeader)
	}
	if widthSum != recordSize {
		return nil, fmt.Errorf("%w: field widths sum to %d, record_len is %d", ErrBadHeader, widthSum, recordSize)
	}

	// Skip the terminator plus any vendor bytes before the first record.
	skip := headerLen - headerSize - nDesc*descriptorSize
	if skip > 0 {
		if _, err := br.Discard(skip); err != nil {
			return nil, fmt.Errorf("dbf: skip to records: %w", err)
		}
	}

	dec, err := decoderFor(opt.Charset, ldid)
	if err != nil {
		return nil, err
	}

	return &Table{
		r:           br,
		fields:      fields,
		recordCount: recordCount,
		recordSize:  recordSize,
		dec:         dec,
		buf:         make([]byte, recordSize),
	}, nil
}

// Fields returns the declared columns in file order.
func (t *Table) Fields() []Field { return t.fields }

// RecordCount returns the record count declared in the header, including
// records carrying the deleted flag.
func (t *Table) RecordCount() int { return t.recordCount }

// Read decodes the next record into a fresh slice of raw field strings,
// aligned with Fields(). Values keep their on-disk padding. It returns
// (values, deleted, nil) for a record, or io.EOF after the last one.
func (t *Table) Read() ([]string, bool, error) {
	if t.read >= t.recordCount {
		return nil, false, io.EOF
	}
	if _, err := io.ReadFull(t.r, t.buf); err != nil {
		return nil, false, fmt.Errorf("dbf: record %d: %w", t.read+1, err)
	}
	t.read++

	flag := t.buf[0]
	if flag != activeFlag && flag != deletedFlag {
		return nil, false, fmt.Errorf("%w: record %d has deletion flag 0x%02x", ErrBadRecord, t.read, flag)
	}

	vals := make([]string, len(t.fields))
	off := 1
	for i, f := range t.fields {
		raw := t.buf[off : off+f.Width]
		off += f.Width
		s, err := t.dec.String(string(raw))
		if err != nil {
			return nil, false, fmt.Errorf("%w: record %d field %s: %v", ErrBadRecord, t.read, f.Name, err)
		}
		vals[i] = s
	}
	return vals, flag == deletedFlag, nil
}

// Close releases the underlying file when the table was opened via Open.
func (t *Table) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// decoderFor resolves the text decoder from an explicit charset name or the
// header's language driver ID.
func decoderFor(name string, ldid byte) (*encoding.Decoder, error) {
	if name != "" {
		cm, ok := charsets[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("dbf: unknown charset %q", name)
		}
		return cm.NewDecoder(), nil
	}
	if cm, ok := languageDrivers[ldid]; ok {
		return cm.NewDecoder(), nil
	}
	// Files written without a language driver byte are overwhelmingly
	// Windows ANSI in practice.
	return charmap.Windows1252.NewDecoder(), nil
}

var charsets = map[string]*charmap.Charmap{
	"cp437":  charmap.CodePage437,
	"cp850":  charmap.CodePage850,
	"cp852":  charmap.CodePage852,
	"cp866":  charmap.CodePage866,
	"cp1250": charmap.Windows1250,
	"cp1251": charmap.Windows1251,
	"cp1252": charmap.Windows1252,
}

// languageDrivers maps the header's language driver ID to a code page.
var languageDrivers = map[byte]*charmap.Charmap{
	0x01: charmap.CodePage437,
	0x02: charmap.CodePage850,
	0x03: charmap.Windows1252,
	0x64: charmap.CodePage852,
	0x65: charmap.CodePage866,
	0xC8: charmap.Windows1250,
	0xC9: charmap.Windows1251,
}
