package api

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/nova-explorer/roverd/internal/rover"
)

// StatsResponse is the telemetry rollup over the in-memory path trace and
// detection log.
type StatsResponse struct {
	PathPoints     int      `json:"path_points"`
	TotalDistance  float64  `json:"total_distance"`
	StepMean       float64  `json:"step_mean"`
	StepStddev     float64  `json:"step_stddev"`
	StepP50        float64  `json:"step_p50"`
	StepP85        float64  `json:"step_p85"`
	BatteryLevel   *float64 `json:"battery_level,omitempty"`
	IsCharging     bool     `json:"is_charging"`
	Detections     int      `json:"detections"`
	DetectionsRFID int      `json:"detections_rfid"`
	DetectionsIR   int      `json:"detections_ir"`
}

// Rollup summarizes the snapshot: per-cycle displacement percentiles in
// the spirit of the usual p50/p85 speed reporting, plus battery and
// detection counters.
func Rollup(st rover.State) StatsResponse {
	resp := StatsResponse{
		PathPoints:   len(st.PathHistory),
		BatteryLevel: st.BatteryLevel,
		IsCharging:   st.IsCharging,
		Detections:   len(st.SurvivorsFound),
	}
	for _, ev := range st.SurvivorsFound {
		switch ev.SensorType {
		case rover.SensorRFID:
			resp.DetectionsRFID++
		case rover.SensorIR:
			resp.DetectionsIR++
		}
	}

	steps := displacements(st.PathHistory)
	if len(steps) == 0 {
		return resp
	}
	for _, d := range steps {
		resp.TotalDistance += d
	}
	mean, stddev := stat.MeanStdDev(steps, nil)
	resp.StepMean = mean
	if !math.IsNaN(stddev) {
		resp.StepStddev = stddev
	}

	sort.Float64s(steps)
	resp.StepP50 = stat.Quantile(0.50, stat.Empirical, steps, nil)
	resp.StepP85 = stat.Quantile(0.85, stat.Empirical, steps, nil)
	return resp
}

// displacements returns the euclidean distance between consecutive path
// points.
func displacements(path []rover.Position) []float64 {
	if len(path) < 2 {
		return nil
	}
	out := make([]float64, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		dx := path[i].X - path[i-1].X
		dy := path[i].Y - path[i-1].Y
		out = append(out, math.Hypot(dx, dy))
	}
	return out
}
