package transfer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
)

// maxHeaderBytes bounds the metadata line per §4.3: "If 65,536 bytes are
// buffered without seeing \n, the connection is closed with a protocol error."
const maxHeaderBytes = 65536

// metadata is the wire header of §6: one UTF-8 JSON line terminated by \n.
type metadata struct {
	TransferID string `json:"transferId,omitempty"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
}

// sanitizeBasename strips any directory components from a peer-supplied
// file name, per §4.3 ("basename is computed from the declared name field,
// directory traversal stripped").
func sanitizeBasename(name string) string {
	base := filepath.Base(filepath.Clean(name))
	switch base {
	case "", ".", "/", string(filepath.Separator):
		return "transfer"
	default:
		return base
	}
}

// readHeader reads the metadata line from r using ReadSlice so that the
// reader's leftover internal buffer (anything already pulled off the wire
// past the \n) remains inside r: the caller continues reading the payload
// from the same *bufio.Reader, which drains that leftover first before
// touching the socket again. That is the race-free handover of §4.3 - no
// explicit unshift is needed because bufio.Reader is itself unshift-capable.
func readHeader(r *bufio.Reader) (metadata, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			if len(line) >= maxHeaderBytes {
				return metadata{}, ErrHeaderTooLarge
			}
			continue
		}
		return metadata{}, err
	}
	if len(line) > maxHeaderBytes {
		return metadata{}, ErrHeaderTooLarge
	}

	var m metadata
	if err := json.Unmarshal(line[:len(line)-1], &m); err != nil {
		return metadata{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	return m, nil
}

// writeHeader marshals and writes the metadata line. The Write call
// returning means the header bytes reached the kernel's socket buffer,
// which is the "flush" the sender waits on before streaming payload (§4.4).
func writeHeader(w io.Writer, m metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
