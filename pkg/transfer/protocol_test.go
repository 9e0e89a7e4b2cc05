package transfer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
)

func TestSanitizeBasename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "photo.png", "photo.png"},
		{"traversal", "../../etc/passwd", "passwd"},
		{"absolute", "/etc/shadow", "shadow"},
		{"nested", "a/b/c/report.pdf", "report.pdf"},
		{"empty", "", "transfer"},
		{"dot", ".", "transfer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeBasename(tt.in); got != tt.want {
				t.Errorf("sanitizeBasename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadHeader_Valid(t *testing.T) {
	raw := `{"transferId":"t1","name":"hello.txt","size":13}` + "\nhello, world\n"
	r := bufio.NewReaderSize(strings.NewReader(raw), 4096)
	m, err := readHeader(r)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if m.TransferID != "t1" || m.Name != "hello.txt" || m.Size != 13 {
		t.Fatalf("unexpected metadata: %+v", m)
	}

	rest := make([]byte, 13)
	if _, err := r.Read(rest); err != nil {
		t.Fatalf("reading leftover payload: %v", err)
	}
	if string(rest) != "hello, world\n" {
		t.Errorf("leftover payload = %q, want %q", rest, "hello, world\n")
	}
}

func TestReadHeader_Malformed(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("not json\n"), 4096)
	_, err := readHeader(r)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("err = %v, want ErrMalformedHeader", err)
	}
}

func TestReadHeader_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`{"name":"`)
	for buf.Len() < maxHeaderBytes+100 {
		buf.WriteString("x")
	}
	// never write the terminating newline
	r := bufio.NewReaderSize(&buf, 4096)
	_, err := readHeader(r)
	if !errors.Is(err, ErrHeaderTooLarge) {
		t.Fatalf("err = %v, want ErrHeaderTooLarge", err)
	}
}

func TestWriteHeader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := metadata{TransferID: "abc", Name: "file.bin", Size: 42}
	if err := writeHeader(&buf, in); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}
	r := bufio.NewReaderSize(&buf, 4096)
	out, err := readHeader(r)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if out != in {
		t.Errorf("round-trip mismatch: got %+v, want %+v", out, in)
	}
}

// framing adversary (S6): a payload whose first bytes resemble a second
// header must not be reinterpreted as one - the receiver only ever reads
// exactly Size bytes via io.LimitReader, never re-scans for '\n'.
func TestReadHeader_FramingAdversaryLeavesPayloadIntact(t *testing.T) {
	payload := []byte(`{"name":"x","size":1}` + "\nrest-of-the-real-file")
	raw := `{"name":"outer","size":` + strconv.Itoa(len(payload)) + "}\n" + string(payload)
	r := bufio.NewReaderSize(strings.NewReader(raw), 4096)
	m, err := readHeader(r)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if m.Name != "outer" || int(m.Size) != len(payload) {
		t.Fatalf("unexpected outer header: %+v", m)
	}

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(r, got); err != nil {
		t.Fatalf("reading payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload corrupted by inner header lookalike:\ngot  %q\nwant %q", got, payload)
	}
}
