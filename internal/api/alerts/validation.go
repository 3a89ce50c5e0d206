package alerts

import (
	"fmt"
	"math"
	"time"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// snapshotFromRequest validates a snapshot request. Component names are a
// closed set; values must be finite numbers.
func snapshotFromRequest(req *SnapshotRequest, now time.Time) (*models.SignalSnapshot, error) {
	if len(req.Components) == 0 {
		return nil, fmt.Errorf("components are required")
	}

	components := make(map[models.ComponentName]float64, len(req.Components))
	for name, value := range req.Components {
		parsed, err := models.ParseComponentName(name)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("component %q: value must be a finite number", name)
		}
		components[parsed] = value
	}

	return &models.SignalSnapshot{
		SubjectID:  req.SubjectID,
		Timestamp:  now,
		Components: components,
	}, nil
}
