// Package forecast projects monthly metric history forward with a least-squares trend.
package forecast

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// DefaultPeriods is the number of future periods projected when none is requested.
const DefaultPeriods = 3

// Point is an (x, y) sample used for regression.
type Point struct {
	X float64
	Y float64
}

// LinearRegression fits y = slope*x + intercept by ordinary least squares. Both
// coefficients are zero when there are no points or all x are equal.
func LinearRegression(points []Point) (slope, intercept float64) {
	n := float64(len(points))
	if n == 0 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}

	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, 0
	}

	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// PeriodValues holds every metric recorded for one period.
type PeriodValues struct {
	Period time.Time
	Values map[string]float64
}

// ChartPoint is one entry of a forecast series. Historical points carry Value;
// projected points carry a nil Value and a Forecast.
type ChartPoint struct {
	X        int
	Name     string
	Metric   string
	Value    *float64
	Forecast *float64
}

// IsForecast reports whether the point was projected.
func (p ChartPoint) IsForecast() bool { return p.Forecast != nil }

// MarshalJSON renders the point keyed by its metric name, e.g.
// {"name":"Jan","netRevenue":120}.
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"name":`)
	name, err := json.Marshal(p.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(name)

	key, err := json.Marshal(p.Metric)
	if err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	buf.Write(key)
	buf.WriteByte(':')
	if p.Value == nil {
		buf.WriteString("null")
	} else {
		v, err := json.Marshal(*p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}

	if p.Forecast != nil {
		f, err := json.Marshal(*p.Forecast)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"forecast":`)
		buf.Write(f)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GetForecastedMetrics turns ordered history into a chart series for metricName and
// appends periods projected points. History must be sorted by period. With fewer
// than two historical points, or periods <= 0, the history is returned as is.
// Callers without an explicit horizon pass DefaultPeriods.
func GetForecastedMetrics(history []PeriodValues, metricName string, periods int) []ChartPoint {
	periods = max(periods, 0)

	series := make([]ChartPoint, 0, len(history)+periods)
	samples := make([]Point, 0, len(history))
	for i, pv := range history {
		y := pv.Values[metricName]
		series = append(series, ChartPoint{X: i, Name: pv.Period.Format("Jan"), Metric: metricName, Value: floatPtr(y)})
		samples = append(samples, Point{X: float64(i), Y: y})
	}

	if len(samples) < 2 || periods == 0 {
		return series
	}

	slope, intercept := LinearRegression(samples)
	lastIndex := len(history) - 1
	lastPeriod := history[lastIndex].Period

	for i := 1; i <= periods; i++ {
		next := lastIndex + i
		value := math.Max(0, slope*float64(next)+intercept)
		series = append(series, ChartPoint{
			X:        next,
			Name:     lastPeriod.AddDate(0, i, 0).Format("Jan"),
			Metric:   metricName,
			Forecast: floatPtr(value),
		})
	}

	return series
}

func floatPtr(v float64) *float64 { return &v }
