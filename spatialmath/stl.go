package spatialmath

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	stlHeaderLen   = 80
	stlTriangleLen = 50
)

// ReadSTL reads the triangles of a binary or ASCII stl file.
func ReadSTL(path string) ([]*Triangle, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tris, err := ParseSTL(raw)
	if err != nil {
		return nil, newSTLParseError(path, err)
	}
	return tris, nil
}

// ParseSTL decodes stl bytes. A payload whose length matches the binary triangle count is decoded as
// binary even when its header starts with "solid", as some exporters write.
func ParseSTL(raw []byte) ([]*Triangle, error) {
	if len(raw) >= stlHeaderLen+4 {
		count := binary.LittleEndian.Uint32(raw[stlHeaderLen : stlHeaderLen+4])
		if uint64(len(raw)) == stlHeaderLen+4+uint64(count)*stlTriangleLen {
			return parseBinarySTL(raw[stlHeaderLen+4:], int(count))
		}
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("solid")) {
		return parseASCIISTL(bytes.NewReader(raw))
	}
	return nil, errors.New("neither a binary nor an ascii stl")
}

func parseBinarySTL(body []byte, count int) ([]*Triangle, error) {
	tris := make([]*Triangle, 0, count)
	for i := 0; i < count; i++ {
		rec := body[i*stlTriangleLen : (i+1)*stlTriangleLen]
		var pts [3]r3.Vector
		// The first 12 bytes are the facet normal, which is recomputed from the winding.
		for v := 0; v < 3; v++ {
			off := 12 + 12*v
			pts[v] = r3.Vector{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[off+8:]))),
			}
		}
		tris = append(tris, NewTriangle(pts[0], pts[1], pts[2]))
	}
	return tris, nil
}

func parseASCIISTL(r io.Reader) ([]*Triangle, error) {
	var tris []*Triangle
	var pts []r3.Vector
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "vertex":
			if len(fields) != 4 {
				return nil, errors.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var xyz [3]float64
			for i := range xyz {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", line)
				}
				xyz[i] = f
			}
			pts = append(pts, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		case "endloop":
			if len(pts) != 3 {
				return nil, errors.Errorf("line %d: facet has %d vertices", line, len(pts))
			}
			tris = append(tris, NewTriangle(pts[0], pts[1], pts[2]))
			pts = pts[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tris) == 0 {
		return nil, errors.New("no facets")
	}
	return tris, nil
}

// WriteBinarySTL encodes triangles as a binary stl.
func WriteBinarySTL(w io.Writer, tris []*Triangle) error {
	header := make([]byte, stlHeaderLen)
	copy(header, "lynx")
	if _, err := w.Write(header); err != nil {
		return err
	}
	//nolint:gosec
	if err := binary.Write(w, binary.LittleEndian, uint32(len(tris))); err != nil {
		return err
	}
	for _, tri := range tris {
		rec := make([]float32, 0, 12)
		n := tri.Normal()
		rec = append(rec, float32(n.X), float32(n.Y), float32(n.Z))
		for _, p := range tri.Points() {
			rec = append(rec, float32(p.X), float32(p.Y), float32(p.Z))
		}
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return err
		}
	}
	return nil
}
