package recording

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/landmark"
)

func TestWriteThenPlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sets := []landmark.Set{
		{geom.Pt(0.1, 0.2), geom.Pt(0.3, 0.4)},
		nil,
		{geom.Pt(0.5, 0.6), geom.Pt(0.7, 0.8)},
	}
	for i, s := range sets {
		if err := w.Write(NewEntry(i, int64(i*33), s)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.Len() != len(sets) {
		t.Fatalf("Len = %d, want %d", p.Len(), len(sets))
	}

	for i, want := range sets {
		got, err := p.Detect(nil)
		if err != nil {
			t.Fatalf("Detect %d: %v", i, err)
		}
		if len(got) != len(want) {
			t.Fatalf("frame %d has %d landmarks, want %d", i, len(got), len(want))
		}
		for k := range want {
			if got[k] != want[k] {
				t.Fatalf("frame %d landmark %d = %v, want %v", i, k, got[k], want[k])
			}
		}
	}

	if got, err := p.Detect(nil); err != nil || got != nil {
		t.Fatalf("past the end: got %v, %v; want no face", got, err)
	}
	if _, err := p.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next past the end: %v, want io.EOF", err)
	}
}

func TestLoop(t *testing.T) {
	p, err := Read(strings.NewReader(`{"frame":0,"landmarks":[[0.1,0.1]]}

{"frame":1,"landmarks":[[0.2,0.2]]}
`))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	p.Loop = true

	var frames []int
	for i := 0; i < 5; i++ {
		e, err := p.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		frames = append(frames, e.Frame)
	}
	want := []int{0, 1, 0, 1, 0}
	for i := range want {
		if frames[i] != want[i] {
			t.Fatalf("frames = %v, want %v", frames, want)
		}
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(strings.NewReader("{\"frame\":0}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("got %v, want a line 2 error", err)
	}
}
