package detector

import "sort"

// nms keeps the highest scoring face of every group whose boxes overlap by
// more than iouThreshold. faces is sorted in place.
func nms(faces []Face, iouThreshold float32) []Face {
	sort.Slice(faces, func(i, j int) bool {
		return faces[i].Score > faces[j].Score
	})

	kept := make([]Face, 0, len(faces))
	for _, f := range faces {
		suppressed := false
		for _, k := range kept {
			if iou(k.BoundingBox, f.BoundingBox) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, f)
		}
	}
	return kept
}

// iou calculates Intersection over Union of two bounding boxes
func iou(a, b BoundingBox) float32 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
