package dbf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

/*
buildDBF assembles a minimal dBASE III file in memory: 32-byte header,
one 32-byte descriptor per field, 0x0D terminator, then fixed-width records.
Records must already be padded to the declared widths.
*/
func buildDBF(t *testing.T, ldid byte, fields []Field, records []string, deleted []bool) []byte {
	t.Helper()

	recordSize := 1
	for _, f := range fields {
		recordSize += f.Width
	}
	headerLen := 32 + 32*len(fields) + 1

	var buf bytes.Buffer
	hdr := make([]byte, 32)
	hdr[0] = 0x03 // dBASE III, no memo
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(records)))
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(headerLen))
	binary.LittleEndian.PutUint16(hdr[10:12], uint16(recordSize))
	hdr[29] = ldid
	buf.Write(hdr)

	for _, f := range fields {
		d := make([]byte, 32)
		copy(d[:11], f.Name)
		d[11] = f.Type
		d[16] = byte(f.Width)
		d[17] = byte(f.Decimals)
		buf.Write(d)
	}
	buf.WriteByte(0x0D)

	for i, rec := range records {
		if len(rec) != recordSize-1 {
			t.Fatalf("record %d: got %d bytes, want %d", i, len(rec), recordSize-1)
		}
		flag := byte(' ')
		if deleted != nil && deleted[i] {
			flag = '*'
		}
		buf.WriteByte(flag)
		buf.WriteString(rec)
	}
	buf.WriteByte(0x1A)
	return buf.Bytes()
}

var testFields = []Field{
	{Name: "name", Type: 'C', Width: 20},
	{Name: "active", Type: 'L', Width: 1},
	{Name: "joined", Type: 'D', Width: 8},
}

func TestNewTableHeader(t *testing.T) {
	raw := buildDBF(t, 0x03, testFields, []string{
		"ALICE               " + "T" + "20230115",
		"BOB                 " + "?" + "20230220",
	}, nil)

	tbl, err := NewTable(bytes.NewReader(raw), Options{})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if got := tbl.RecordCount(); got != 2 {
		t.Fatalf("RecordCount = %d, want 2", got)
	}
	fs := tbl.Fields()
	if len(fs) != 3 {
		t.Fatalf("Fields = %d, want 3", len(fs))
	}
	if fs[0].Name != "name" || fs[0].Type != 'C' || fs[0].Width != 20 {
		t.Errorf("field 0 = %+v", fs[0])
	}
	if fs[1].Type != 'L' || fs[2].Type != 'D' {
		t.Errorf("unexpected field types: %+v", fs)
	}
}

func TestReadRecordsInOrder(t *testing.T) {
	raw := buildDBF(t, 0x03, testFields, []string{
		"ALICE               " + "T" + "20230115",
		"BOB                 " + "?" + "20230220",
	}, []bool{false, true})

	tbl, err := NewTable(bytes.NewReader(raw), Options{})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	v1, del1, err := tbl.Read()
	if err != nil {
		t.Fatalf("Read 1: %v", err)
	}
	if del1 {
		t.Error("record 1 reported deleted")
	}
	if v1[0] != "ALICE               " || v1[1] != "T" || v1[2] != "20230115" {
		t.Errorf("record 1 = %q", v1)
	}

	v2, del2, err := tbl.Read()
	if err != nil {
		t.Fatalf("Read 2: %v", err)
	}
	if !del2 {
		t.Error("record 2 not reported deleted")
	}
	if v2[0] != "BOB                 " {
		t.Errorf("record 2 = %q", v2)
	}

	if _, _, err := tbl.Read(); err != io.EOF {
		t.Fatalf("Read past end = %v, want io.EOF", err)
	}
}

func TestCharsetDecoding(t *testing.T) {
	// 0xF8 is ø in cp1252 and ř in cp1250.
	fields := []Field{{Name: "txt", Type: 'C', Width: 4}}
	raw := buildDBF(t, 0xC8, fields, []string{"\xF8   "}, nil)

	tbl, err := NewTable(bytes.NewReader(raw), Options{})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	v, _, err := tbl.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v[0] != "ř   " {
		t.Errorf("cp1250 decode = %q, want %q", v[0], "ř   ")
	}

	// Explicit override wins over the language driver byte.
	tbl2, err := NewTable(bytes.NewReader(raw), Options{Charset: "cp1252"})
	if err != nil {
		t.Fatalf("NewTable override: %v", err)
	}
	v2, _, err := tbl2.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v2[0] != "ø   " {
		t.Errorf("cp1252 decode = %q, want %q", v2[0], "ø   ")
	}
}

func TestUnknownCharset(t *testing.T) {
	fields := []Field{{Name: "txt", Type: 'C', Width: 1}}
	raw := buildDBF(t, 0x03, fields, []string{"x"}, nil)
	if _, err := NewTable(bytes.NewReader(raw), Options{Charset: "ebcdic"}); err == nil {
		t.Fatal("expected error for unknown charset")
	}
}

func TestBadDeletionFlag(t *testing.T) {
	fields := []Field{{Name: "txt", Type: 'C', Width: 1}}
	raw := buildDBF(t, 0x03, fields, []string{"x"}, nil)
	// Corrupt the record's deletion flag (first byte after header area).
	raw[32+32+1] = 0xFF

	tbl, err := NewTable(bytes.NewReader(raw), Options{})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	_, _, err = tbl.Read()
	if !errors.Is(err, ErrBadRecord) {
		t.Fatalf("Read = %v, want ErrBadRecord", err)
	}
}

func TestWidthMismatchRejected(t *testing.T) {
	raw := buildDBF(t, 0x03, testFields, nil, nil)
	// Declare a record length that disagrees with the field widths.
	binary.LittleEndian.PutUint16(raw[10:12], 99)
	if _, err := NewTable(bytes.NewReader(raw), Options{}); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("NewTable = %v, want ErrBadHeader", err)
	}
}
