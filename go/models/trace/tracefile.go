package trace

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/models"
)

var TRACE_MAGIC = "BCTR"

type TraceHeader struct {
	// MAGIC ("BCTR")
	Magic string `struc:"[4]byte" json:"-"`
	// file format version
	Version uint32 `json:"version"`

	// Simulated machine, e.g. "i386". Right-null-padded.
	Machine string `struc:"[32]byte" json:"machine"`
	// Kernel personality, e.g. "linux-0.11". Right-null-padded.
	OS string `struc:"[32]byte" json:"os"`
}

// TraceWriter is safe for use by concurrent processes.
type TraceWriter struct {
	mu    sync.Mutex
	w     io.WriteCloser
	zw    *snappy.Writer
	frame []byte
}

func NewWriter(w io.WriteCloser, machine, os string) (*TraceWriter, error) {
	header := &TraceHeader{
		Magic:   TRACE_MAGIC,
		Version: 1,
		Machine: machine,
		OS:      os,
	}
	if err := struc.Pack(w, header); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	zw := snappy.NewBufferedWriter(w)
	return &TraceWriter{w: w, zw: zw}, nil
}

// write a frame at a time
func (t *TraceWriter) Pack(op models.Op) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	size := op.Sizeof()
	if cap(t.frame) < size {
		t.frame = make([]byte, size)
	}
	p := t.frame[:size]
	op.Pack(p)
	_, err := t.zw.Write(p)
	return err
}

// Flush pushes buffered frames to the underlying file.
func (t *TraceWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.zw.Flush()
}

func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.zw.Close(); err != nil {
		t.w.Close()
		return err
	}
	return t.w.Close()
}

type TraceReader struct {
	r      io.ReadCloser
	zr     *bufio.Reader
	Header TraceHeader
}

func NewReader(r io.ReadCloser) (*TraceReader, error) {
	t := &TraceReader{r: r}
	if err := struc.Unpack(r, &t.Header); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != TRACE_MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	t.Header.Machine = strings.TrimRight(t.Header.Machine, "\x00")
	t.Header.OS = strings.TrimRight(t.Header.OS, "\x00")
	t.zr = bufio.NewReader(snappy.NewReader(r))
	return t, nil
}

// Next returns the next op, or io.EOF at the end of the stream.
func (t *TraceReader) Next() (models.Op, error) {
	op, _, err := Unpack(t.zr)
	return op, err
}

func (t *TraceReader) Close() error {
	return t.r.Close()
}
