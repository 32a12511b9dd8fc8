package recognition

import "sort"

// Score thresholds per annotation pass. Localized objects carry a meaningful
// per-instance score; whole-image labels need a stricter cut.
const (
	objectScoreThreshold = 0.5
	labelScoreThreshold  = 0.6
)

// Aggregate turns one vision response into a de-duplicated list of
// detections, keyed by canonical identity.
//
// Localized-object annotations are processed first: they are the only
// trustworthy source for counting, so each accepted annotation contributes
// one unit and repeated identities increment the count, keeping the maximum
// score seen. Label annotations are then admitted only for identities the
// object pass did not produce, in descending score order so the
// highest-confidence surface form wins when several labels collapse onto
// the same identity. Label detections are always count 1 and can never
// overwrite an object-based count.
//
// An empty or malformed response yields an empty slice, never an error.
func Aggregate(resp Response) []Detection {
	detections := make([]Detection, 0, len(resp.Objects)+len(resp.Labels))
	index := make(map[string]int)

	for _, obj := range resp.Objects {
		if obj.Score <= objectScoreThreshold {
			continue
		}
		identity, ok := Canonicalize(obj.Name)
		if !ok {
			continue
		}
		if i, seen := index[identity.Name]; seen {
			detections[i].Count++
			if obj.Score > detections[i].Confidence {
				detections[i].Confidence = obj.Score
			}
			continue
		}
		index[identity.Name] = len(detections)
		detections = append(detections, Detection{
			Name:       identity.Name,
			Category:   identity.Category,
			Count:      1,
			Confidence: obj.Score,
			Source:     SourceObject,
		})
	}

	labels := make([]LabelAnnotation, 0, len(resp.Labels))
	for _, label := range resp.Labels {
		if label.Score > labelScoreThreshold {
			labels = append(labels, label)
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Score > labels[j].Score
	})

	for _, label := range labels {
		identity, ok := Canonicalize(label.Description)
		if !ok {
			continue
		}
		if _, seen := index[identity.Name]; seen {
			continue
		}
		index[identity.Name] = len(detections)
		detections = append(detections, Detection{
			Name:       identity.Name,
			Category:   identity.Category,
			Count:      1,
			Confidence: label.Score,
			Source:     SourceLabel,
		})
	}

	return detections
}
