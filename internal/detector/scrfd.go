package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/mouthwarp/internal/inference"
)

// SCRFDConfig configures the face detector
type SCRFDConfig struct {
	ModelPath     string
	InputSize     int
	ConfThreshold float32
	NMSThreshold  float32
	Provider      inference.Provider
}

// DefaultSCRFDConfig returns the settings for insightface's det_10g model
func DefaultSCRFDConfig(modelPath string) SCRFDConfig {
	return SCRFDConfig{
		ModelPath:     modelPath,
		InputSize:     640,
		ConfThreshold: 0.5,
		NMSThreshold:  0.4,
		Provider:      inference.ProviderCPU,
	}
}

// SCRFD implements the SCRFD face detector
type SCRFD struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a new SCRFD detector
func NewSCRFD(config SCRFDConfig) (*SCRFD, error) {
	if config.InputSize <= 0 || config.InputSize%32 != 0 {
		return nil, fmt.Errorf("SCRFD input size must be a positive multiple of 32, got %d", config.InputSize)
	}

	// 1 input, 3 levels x (score, bbox, kps)
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	session, err := inference.NewSession(config.ModelPath, inputNames, outputNames, config.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        session,
		inputSize:      config.InputSize,
		confThreshold:  config.ConfThreshold,
		nmsThreshold:   config.NMSThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2,
	}, nil
}

// Detect finds faces in a BGR image
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	origHeight := img.Rows()
	origWidth := img.Cols()
	if origWidth == 0 || origHeight == 0 {
		return nil, nil
	}

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(s.inputSize), int64(s.inputSize)),
		bytesToFloat32(inputBlob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 0, 9)
	outputTensors := make([]*ort.Tensor[float32], 0, 9)
	defer func() {
		for _, t := range outputTensors {
			t.Destroy()
		}
	}()

	// score, bbox and kps tensors in that order, each per stride
	for _, width := range []int64{1, 4, 10} {
		for _, stride := range s.featureStrides {
			side := int64(s.inputSize / stride)
			t, err := inference.CreateEmptyTensor[float32]([]int64{side * side * int64(s.numAnchors), width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs = append(outputs, t)
			outputTensors = append(outputTensors, t)
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	var faces []Face
	for level, stride := range s.featureStrides {
		faces = append(faces, decodeLevel(levelOutput{
			scores: outputTensors[level].GetData(),
			boxes:  outputTensors[level+3].GetData(),
			kps:    outputTensors[level+6].GetData(),
			stride: stride,
			side:   s.inputSize / stride,
		}, s.numAnchors, s.confThreshold, scale, origWidth, origHeight)...)
	}

	return nms(faces, s.nmsThreshold), nil
}

// preprocess resizes into the top-left of a square canvas and normalizes
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	height := img.Rows()
	width := img.Cols()

	scale := float32(s.inputSize) / float32(max(height, width))
	newWidth := max(1, int(float32(width)*scale))
	newHeight := max(1, int(float32(height)*scale))

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))

	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(padded, &rgb, gocv.ColorBGRToRGB)
	padded.Close()

	// (x - 127.5) / 128
	blob := gocv.NewMat()
	rgb.ConvertTo(&blob, gocv.MatTypeCV32FC3)
	rgb.Close()
	gocv.AddWeighted(blob, 1.0/128.0, blob, 0, -127.5/128.0, &blob)

	blobNCHW := gocv.BlobFromImage(blob, 1.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	blob.Close()

	return blobNCHW, scale
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

// levelOutput is one stride's slice of the model output
type levelOutput struct {
	scores []float32
	boxes  []float32
	kps    []float32
	stride int
	side   int
}

// decodeLevel turns anchor distances into faces in original image
// coordinates. Boxes are clamped to the image.
func decodeLevel(out levelOutput, numAnchors int, threshold, scale float32, origWidth, origHeight int) []Face {
	var faces []Face
	stride := float32(out.stride)
	w, h := float32(origWidth), float32(origHeight)

	anchor := 0
	for y := 0; y < out.side; y++ {
		for x := 0; x < out.side; x++ {
			for a := 0; a < numAnchors; a, anchor = a+1, anchor+1 {
				if anchor >= len(out.scores) {
					return faces
				}
				score := sigmoid(out.scores[anchor])
				if score <= threshold {
					continue
				}

				cx := (float32(x) + 0.5) * stride
				cy := (float32(y) + 0.5) * stride

				b := out.boxes[anchor*4 : anchor*4+4]
				box := BoundingBox{
					X1: clamp((cx-b[0]*stride)/scale, 0, w),
					Y1: clamp((cy-b[1]*stride)/scale, 0, h),
					X2: clamp((cx+b[2]*stride)/scale, 0, w),
					Y2: clamp((cy+b[3]*stride)/scale, 0, h),
				}

				k := out.kps[anchor*10 : anchor*10+10]
				kp := func(i int) Point {
					return Point{(cx + k[i*2]*stride) / scale, (cy + k[i*2+1]*stride) / scale}
				}

				faces = append(faces, Face{
					BoundingBox: box,
					Landmarks: Landmarks{
						LeftEye:    kp(0),
						RightEye:   kp(1),
						Nose:       kp(2),
						LeftMouth:  kp(3),
						RightMouth: kp(4),
					},
					Score: score,
				})
			}
		}
	}
	return faces
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, lo, hi float32) float32 {
	return min(max(x, lo), hi)
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
