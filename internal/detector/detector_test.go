package detector

import (
	"math"
	"testing"

	"github.com/dudu/mouthwarp/internal/geom"
)

func TestIOU(t *testing.T) {
	a := BoundingBox{0, 0, 10, 10}
	tests := []struct {
		name string
		b    BoundingBox
		want float32
	}{
		{"same", a, 1},
		{"disjoint", BoundingBox{20, 20, 30, 30}, 0},
		{"touching", BoundingBox{10, 0, 20, 10}, 0},
		{"half", BoundingBox{5, 0, 15, 10}, 50.0 / 150.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := iou(a, tt.b); math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("iou = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNMS(t *testing.T) {
	faces := []Face{
		{BoundingBox: BoundingBox{0, 0, 10, 10}, Score: 0.6},
		{BoundingBox: BoundingBox{1, 1, 11, 11}, Score: 0.9},
		{BoundingBox: BoundingBox{50, 50, 60, 60}, Score: 0.7},
	}
	kept := nms(faces, 0.4)
	if len(kept) != 2 {
		t.Fatalf("kept %d faces, want 2", len(kept))
	}
	if kept[0].Score != 0.9 || kept[1].Score != 0.7 {
		t.Errorf("kept scores %v, %v", kept[0].Score, kept[1].Score)
	}
}

func TestLargest(t *testing.T) {
	if _, ok := Largest(nil); ok {
		t.Fatal("Largest(nil) reported a face")
	}
	f, ok := Largest([]Face{
		{BoundingBox: BoundingBox{0, 0, 10, 10}, Score: 0.99},
		{BoundingBox: BoundingBox{0, 0, 30, 20}, Score: 0.6},
	})
	if !ok || f.Score != 0.6 {
		t.Errorf("Largest picked score %v", f.Score)
	}
}

func TestDecodeLevel(t *testing.T) {
	// 2x2 grid, stride 8, one anchor per cell; only cell (1,0) fires
	out := levelOutput{
		scores: []float32{-10, 10, -10, -10},
		boxes:  make([]float32, 16),
		kps:    make([]float32, 40),
		stride: 8,
		side:   2,
	}
	copy(out.boxes[4:8], []float32{1, 1, 1, 1})
	copy(out.kps[10:12], []float32{-0.5, 0})

	faces := decodeLevel(out, 1, 0.5, 0.5, 100, 100)
	if len(faces) != 1 {
		t.Fatalf("decoded %d faces, want 1", len(faces))
	}
	f := faces[0]
	// anchor center (12, 4), scale 0.5 doubles everything
	want := BoundingBox{X1: 8, Y1: 0, X2: 40, Y2: 24}
	if f.BoundingBox != want {
		t.Errorf("box = %+v, want %+v", f.BoundingBox, want)
	}
	if f.Landmarks.LeftEye != (Point{16, 8}) {
		t.Errorf("left eye = %+v", f.Landmarks.LeftEye)
	}
	if f.Score < 0.99 {
		t.Errorf("score = %v", f.Score)
	}
}

func TestDecodeLevelShortOutput(t *testing.T) {
	out := levelOutput{scores: []float32{10}, boxes: make([]float32, 4), kps: make([]float32, 10), stride: 8, side: 2}
	if faces := decodeLevel(out, 2, 0.5, 1, 100, 100); len(faces) != 1 {
		t.Errorf("decoded %d faces, want 1", len(faces))
	}
}

func TestCropTransform(t *testing.T) {
	box := BoundingBox{X1: 100, Y1: 50, X2: 200, Y2: 130}
	m := cropTransform(box, 192, 1.5)

	center := m.Apply(geom.Pt(150, 90))
	if math.Abs(center.X-96) > 1e-9 || math.Abs(center.Y-96) > 1e-9 {
		t.Errorf("box center maps to %v, want (96,96)", center)
	}
	// longer side 100 grows to 150 and fills the crop
	corner := m.Apply(geom.Pt(75, 15))
	if math.Abs(corner.X) > 1e-9 || math.Abs(corner.Y) > 1e-9 {
		t.Errorf("crop corner maps to %v, want origin", corner)
	}

	if got := cropTransform(BoundingBox{}, 192, 1.5); got != (geom.Affine{}) {
		t.Errorf("empty box gave %+v", got)
	}
}

func TestMeshToSet(t *testing.T) {
	box := BoundingBox{X1: 100, Y1: 100, X2: 200, Y2: 200}
	crop := cropTransform(box, 192, 1.5)
	inv, ok := crop.Invert()
	if !ok {
		t.Fatal("crop is not invertible")
	}

	// crop center and origin, z ignored
	data := []float32{96, 96, 5, 0, 0, -3}
	set := meshToSet(data, inv, 400, 300)
	if len(set) != 2 {
		t.Fatalf("len = %d", len(set))
	}
	if math.Abs(set[0].X-150.0/400) > 1e-9 || math.Abs(set[0].Y-150.0/300) > 1e-9 {
		t.Errorf("center = %v", set[0])
	}
	if math.Abs(set[1].X-75.0/400) > 1e-9 || math.Abs(set[1].Y-75.0/300) > 1e-9 {
		t.Errorf("origin = %v", set[1])
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewSCRFD(SCRFDConfig{InputSize: 100}); err == nil {
		t.Error("NewSCRFD accepted input size 100")
	}
	cfg := DefaultFaceMeshConfig("mesh.onnx", "det.onnx")
	cfg.CropScale = 0
	if _, err := NewFaceMesh(cfg); err == nil {
		t.Error("NewFaceMesh accepted crop scale 0")
	}
}
