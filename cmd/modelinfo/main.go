// Command modelinfo prints the inputs, outputs and metadata of an ONNX
// model, and checks a face mesh export against the names the renderer
// expects.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/mouthwarp/internal/detector"
	"github.com/dudu/mouthwarp/internal/inference"
)

func main() {
	libPath := flag.String("ort", "", "Path to the ONNX Runtime shared library")
	checkMesh := flag.Bool("mesh", false, "Check the model against the face mesh input and output names")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: modelinfo [options] <model.onnx>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *libPath, *checkMesh); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(modelPath, libPath string, checkMesh bool) error {
	if _, err := os.Stat(modelPath); err != nil {
		return err
	}

	if err := inference.Initialize(libPath); err != nil {
		return err
	}
	defer inference.Shutdown()

	info, err := inference.Inspect(modelPath)
	if err != nil {
		return err
	}

	fmt.Printf("Inputs (%d):\n", len(info.Inputs))
	for _, in := range info.Inputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", in.Name, in.Dimensions, in.DataType)
	}
	fmt.Printf("\nOutputs (%d):\n", len(info.Outputs))
	for _, out := range info.Outputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", out.Name, out.Dimensions, out.DataType)
	}

	fmt.Println("\nMetadata:")
	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		fmt.Printf("  (Could not read metadata: %v)\n", err)
	} else {
		if producer, err := metadata.GetProducerName(); err == nil {
			fmt.Printf("  Producer: %s\n", producer)
		}
		if version, err := metadata.GetVersion(); err == nil {
			fmt.Printf("  Version: %d\n", version)
		}
		if domain, err := metadata.GetDomain(); err == nil {
			fmt.Printf("  Domain: %s\n", domain)
		}
		if desc, err := metadata.GetDescription(); err == nil {
			fmt.Printf("  Description: %s\n", desc)
		}
		metadata.Destroy()
	}

	if !checkMesh {
		return nil
	}

	cfg := detector.DefaultFaceMeshConfig(modelPath, "")
	var missing []string
	if !hasName(info.Inputs, cfg.InputName) {
		missing = append(missing, "input "+cfg.InputName)
	}
	for _, name := range []string{cfg.LandmarksOutput, cfg.PresenceOutput} {
		if !hasName(info.Outputs, name) {
			missing = append(missing, "output "+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a face mesh export, missing %v", missing)
	}
	fmt.Println("\nFace mesh names OK")
	return nil
}

func hasName(infos []ort.InputOutputInfo, name string) bool {
	return slices.ContainsFunc(infos, func(i ort.InputOutputInfo) bool {
		return i.Name == name
	})
}
