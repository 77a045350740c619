package main

import (
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/dudu/mouthwarp/internal/camera"
	"github.com/dudu/mouthwarp/internal/detector"
	"github.com/dudu/mouthwarp/internal/inference"
	"github.com/dudu/mouthwarp/internal/pipeline"
	"github.com/dudu/mouthwarp/internal/recording"
)

// isImagePath reports whether path names a still image format
func isImagePath(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}

func openSource(config Config) (pipeline.FrameSource, error) {
	switch {
	case config.Live():
		fmt.Printf("Opening camera %d...\n", config.CameraIndex)
		cam, err := camera.NewCapture(config.CameraIndex, config.TargetFPS)
		if err != nil {
			return nil, fmt.Errorf("failed to open camera: %w", err)
		}
		fmt.Printf("Camera opened: %dx%d\n", cam.Width(), cam.Height())
		return cam, nil
	case isImagePath(config.Input):
		return camera.OpenImage(config.Input)
	default:
		video, err := camera.OpenFile(config.Input)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Video opened: %dx%d at %.1f FPS\n", video.Width(), video.Height(), video.FPS())
		return video, nil
	}
}

// landmarkSource also shuts down ONNX Runtime when the models are closed
type landmarkSource struct {
	pipeline.LandmarkSource
	shutdown bool
}

func (s landmarkSource) Close() error {
	err := s.LandmarkSource.Close()
	if s.shutdown {
		if serr := inference.Shutdown(); err == nil {
			err = serr
		}
	}
	return err
}

func openLandmarks(config Config) (pipeline.LandmarkSource, error) {
	if config.Landmarks != "" {
		player, err := recording.Open(config.Landmarks)
		if err != nil {
			return nil, err
		}
		player.Loop = config.Loop
		fmt.Printf("Playing %d recorded frames from %s\n", player.Len(), config.Landmarks)
		return player, nil
	}

	provider, err := inference.ParseProvider(config.Provider)
	if err != nil {
		return nil, err
	}
	if err := inference.Initialize(config.ORTLibrary); err != nil {
		return nil, err
	}

	meshConfig := detector.DefaultFaceMeshConfig(config.MeshModel, config.DetModel)
	meshConfig.Provider = provider
	meshConfig.Detector.Provider = provider
	mesh, err := detector.NewFaceMesh(meshConfig)
	if err != nil {
		err = fmt.Errorf("failed to load face mesh: %w", err)
		return nil, errors.Join(err, inference.Shutdown())
	}
	fmt.Println("Models loaded successfully")
	return landmarkSource{LandmarkSource: mesh, shutdown: true}, nil
}

func openSink(path string, fps float64, width, height int) (pipeline.FrameSink, error) {
	if isImagePath(path) {
		return camera.NewImageWriter(path)
	}
	return camera.NewVideoWriter(path, camera.DefaultCodec, fps, width, height)
}
