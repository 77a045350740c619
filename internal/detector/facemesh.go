package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/mouthwarp/internal/geom"
	"github.com/dudu/mouthwarp/internal/inference"
	"github.com/dudu/mouthwarp/internal/landmark"
)

// MeshPoints is the number of landmarks the face mesh model predicts
const MeshPoints = 468

// FaceMeshConfig configures the 468-point face mesh
type FaceMeshConfig struct {
	ModelPath       string
	InputName       string
	LandmarksOutput string
	PresenceOutput  string
	InputSize       int
	// CropScale grows the detector box before cropping
	CropScale         float32
	PresenceThreshold float32
	Provider          inference.Provider
	Detector          SCRFDConfig
}

// DefaultFaceMeshConfig returns the settings for MediaPipe's face_landmark
// model exported to ONNX
func DefaultFaceMeshConfig(meshPath, detectorPath string) FaceMeshConfig {
	return FaceMeshConfig{
		ModelPath:         meshPath,
		InputName:         "input_1",
		LandmarksOutput:   "conv2d_21",
		PresenceOutput:    "conv2d_31",
		InputSize:         192,
		CropScale:         1.5,
		PresenceThreshold: 0.5,
		Provider:          inference.ProviderCPU,
		Detector:          DefaultSCRFDConfig(detectorPath),
	}
}

// FaceMesh finds the largest face with SCRFD and runs the mesh model on a
// square crop around it
type FaceMesh struct {
	detector  *SCRFD
	session   *inference.Session
	config    FaceMeshConfig
	lastFaces int
}

// NewFaceMesh loads both models
func NewFaceMesh(config FaceMeshConfig) (*FaceMesh, error) {
	if config.InputSize <= 0 {
		return nil, fmt.Errorf("face mesh input size must be positive, got %d", config.InputSize)
	}
	if config.CropScale <= 0 {
		return nil, fmt.Errorf("face mesh crop scale must be positive, got %v", config.CropScale)
	}

	det, err := NewSCRFD(config.Detector)
	if err != nil {
		return nil, err
	}

	session, err := inference.NewSession(config.ModelPath,
		[]string{config.InputName},
		[]string{config.LandmarksOutput, config.PresenceOutput},
		config.Provider)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("failed to create face mesh session: %w", err)
	}

	return &FaceMesh{
		detector: det,
		session:  session,
		config:   config,
	}, nil
}

// Detect returns the normalized landmarks of the largest face in img, or an
// empty set when there is none
func (m *FaceMesh) Detect(img image.Image) (landmark.Set, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	faces, err := m.detector.Detect(mat)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	m.lastFaces = len(faces)
	face, ok := Largest(faces)
	if !ok {
		return nil, nil
	}

	crop := cropTransform(face.BoundingBox, m.config.InputSize, m.config.CropScale)
	inv, ok := crop.Invert()
	if !ok {
		return nil, nil
	}

	input, err := m.preprocess(mat, crop)
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	points, err := inference.CreateEmptyTensor[float32]([]int64{1, 1, 1, MeshPoints * 3})
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer points.Destroy()

	presence, err := inference.CreateEmptyTensor[float32]([]int64{1, 1, 1, 1})
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer presence.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{points, presence}); err != nil {
		return nil, fmt.Errorf("face mesh inference failed: %w", err)
	}

	if sigmoid(presence.GetData()[0]) < m.config.PresenceThreshold {
		return nil, nil
	}

	return meshToSet(points.GetData(), inv, b.Dx(), b.Dy()), nil
}

// preprocess crops the face and packs it as NHWC RGB in [0,1]
func (m *FaceMesh) preprocess(mat gocv.Mat, crop geom.Affine) (*ort.Tensor[float32], error) {
	size := m.config.InputSize

	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	M.SetDoubleAt(0, 0, crop.A)
	M.SetDoubleAt(0, 1, crop.B)
	M.SetDoubleAt(0, 2, crop.C)
	M.SetDoubleAt(1, 0, crop.D)
	M.SetDoubleAt(1, 1, crop.E)
	M.SetDoubleAt(1, 2, crop.F)
	defer M.Close()

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(mat, &aligned, M, image.Pt(size, size))

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(aligned, &rgb, gocv.ColorBGRToRGB)

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	rgb.ConvertTo(&floatMat, gocv.MatTypeCV32FC3)
	gocv.AddWeighted(floatMat, 1.0/255.0, floatMat, 0, 0, &floatMat)

	tensor, err := ort.NewTensor(
		ort.NewShape(1, int64(size), int64(size), 3),
		bytesToFloat32(floatMat.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	return tensor, nil
}

// LastFaceCount returns how many faces the detector saw on the last frame
func (m *FaceMesh) LastFaceCount() int {
	return m.lastFaces
}

// Close releases both sessions
func (m *FaceMesh) Close() error {
	var firstErr error
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			firstErr = err
		}
	}
	if m.detector != nil {
		if err := m.detector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// cropTransform maps image coordinates into a size x size crop centered on
// the box, with the box's longer side scaled up by cropScale
func cropTransform(box BoundingBox, size int, cropScale float32) geom.Affine {
	c := box.Center()
	side := float64(box.Side() * cropScale)
	if side <= 0 {
		return geom.Affine{}
	}
	s := float64(size) / side
	half := float64(size) / 2
	return geom.Translate(-float64(c.X), -float64(c.Y)).
		Then(geom.Scale(s, s)).
		Then(geom.Translate(half, half))
}

// meshToSet maps crop-space (x, y, z) triples back through inv and
// normalizes them by the image size
func meshToSet(data []float32, inv geom.Affine, width, height int) landmark.Set {
	n := len(data) / 3
	set := make(landmark.Set, n)
	for i := 0; i < n; i++ {
		p := inv.Apply(geom.Pt(float64(data[i*3]), float64(data[i*3+1])))
		set[i] = geom.Pt(p.X/float64(width), p.Y/float64(height))
	}
	return set
}
