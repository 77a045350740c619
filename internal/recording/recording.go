// Package recording stores landmark sets as JSON lines so a session can be
// rendered again without running the detector.
package recording

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/landmark"
)

// Entry is one recorded frame
type Entry struct {
	Frame     int          `json:"frame"`
	TimeMS    int64        `json:"time_ms"`
	Landmarks [][2]float64 `json:"landmarks"`
}

// Set converts the entry's landmarks
func (e Entry) Set() landmark.Set {
	if len(e.Landmarks) == 0 {
		return nil
	}
	set := make(landmark.Set, len(e.Landmarks))
	for i, p := range e.Landmarks {
		set[i] = geom.Pt(p[0], p[1])
	}
	return set
}

// NewEntry builds an entry from a landmark set
func NewEntry(frame int, timeMS int64, set landmark.Set) Entry {
	e := Entry{Frame: frame, TimeMS: timeMS, Landmarks: make([][2]float64, len(set))}
	for i, p := range set {
		e.Landmarks[i] = [2]float64{p.X, p.Y}
	}
	return e
}

// Writer appends entries to a recording
type Writer struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// Create opens a new recording file, truncating any existing one
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &Writer{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write appends one entry
func (w *Writer) Write(e Entry) error {
	if err := w.enc.Encode(e); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", e.Frame, err)
	}
	return nil
}

// Close flushes and closes the file
func (w *Writer) Close() error {
	flushErr := w.buf.Flush()
	closeErr := w.f.Close()
	return errors.Join(flushErr, closeErr)
}

// Player replays a recording one entry per Detect call. It satisfies the
// pipeline's landmark source so recorded sessions render like live ones.
type Player struct {
	entries []Entry
	next    int
	// Loop restarts from the first entry after the last one
	Loop bool
}

// Open reads a whole recording
func Open(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	p, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording %s: %w", path, err)
	}
	return p, nil
}

// Read decodes a recording from r. Blank lines are skipped.
func Read(r io.Reader) (*Player, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		data := sc.Bytes()
		if len(data) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Player{entries: entries}, nil
}

// Len returns the number of recorded frames
func (p *Player) Len() int {
	return len(p.entries)
}

// Entries returns the recorded frames
func (p *Player) Entries() []Entry {
	return p.entries
}

// Next returns the next entry, or io.EOF at the end of a non-looping
// recording
func (p *Player) Next() (Entry, error) {
	if p.next >= len(p.entries) {
		if !p.Loop || len(p.entries) == 0 {
			return Entry{}, io.EOF
		}
		p.next = 0
	}
	e := p.entries[p.next]
	p.next++
	return e, nil
}

// Detect returns the landmarks of the next recorded frame. The image is
// ignored. Past the end it reports no face.
func (p *Player) Detect(img image.Image) (landmark.Set, error) {
	e, err := p.Next()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.Set(), nil
}

// Rewind restarts playback
func (p *Player) Rewind() {
	p.next = 0
}

// Close implements the landmark source interface
func (p *Player) Close() error {
	return nil
}
