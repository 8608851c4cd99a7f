package flat

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// File format of the vector artifact:
//
//	magic   [4]byte "GWVI"
//	version uint32
//	dim     uint32
//	count   uint32
//	rows    count*dim little-endian float32
const (
	magic         = "GWVI"
	formatVersion = 1
	headerSize    = 16
)

// vectorFile is a decoded vector artifact. Rows are stored contiguously.
type vectorFile struct {
	dim   int
	count int
	data  []float32
}

// row returns the vector at slot i.
func (v *vectorFile) row(i int) []float32 {
	return v.data[i*v.dim : (i+1)*v.dim]
}

// encodeVectors serialises vectors that all share dimension dim.
func encodeVectors(dim int, vectors [][]float32) []byte {
	buf := make([]byte, headerSize, headerSize+len(vectors)*dim*4)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(dim))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(vectors)))

	for _, v := range vectors {
		buf = append(buf, float32SliceToBytes(v)...)
	}
	return buf
}

// decodeVectors parses a vector artifact.
func decodeVectors(data []byte) (*vectorFile, error) {
	if len(data) < headerSize || string(data[0:4]) != magic {
		return nil, fmt.Errorf("read vectors: bad header: %w", domain.ErrIndexCorrupt)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return nil, fmt.Errorf("read vectors: unsupported version %d: %w", v, domain.ErrIndexCorrupt)
	}

	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	count := int(binary.LittleEndian.Uint32(data[12:16]))
	if want := headerSize + dim*count*4; len(data) != want {
		return nil, fmt.Errorf("read vectors: size %d, header implies %d: %w",
			len(data), want, domain.ErrIndexCorrupt)
	}

	return &vectorFile{
		dim:   dim,
		count: count,
		data:  bytesToFloat32Slice(data[headerSize:]),
	}, nil
}

// encodeMetadata serialises records as JSON Lines.
func encodeMetadata(records []domain.MetadataRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// decodeMetadata parses JSON Lines records. Blank and unparseable lines are
// skipped.
func decodeMetadata(r io.Reader) ([]domain.MetadataRecord, error) {
	var records []domain.MetadataRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec domain.MetadataRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("skipping unparseable metadata line %d: %v", line, err)
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return records, nil
}

// writeTemp writes data to a temp file beside path and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create index directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), nil
}

// float32SliceToBytes converts a []float32 to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts little-endian bytes back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
