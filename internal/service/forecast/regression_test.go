package forecast

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLinearRegression(t *testing.T) {
	cases := []struct {
		name       string
		points     []Point
		slope, icp float64
	}{
		{"collinear", []Point{{0, 10}, {1, 20}, {2, 30}}, 10, 10},
		{"empty", nil, 0, 0},
		{"single", []Point{{4, 9}}, 0, 0},
		{"vertical", []Point{{1, 2}, {1, 5}}, 0, 0},
		{"flat", []Point{{0, 7}, {1, 7}, {2, 7}, {3, 7}}, 0, 7},
		{"noisy", []Point{{0, 1}, {1, 3}, {2, 2}, {3, 5}}, 1.1, 1.1},
	}

	for _, tc := range cases {
		slope, icp := LinearRegression(tc.points)
		if !approx(slope, tc.slope) || !approx(icp, tc.icp) {
			t.Fatalf("%s: expected (%v, %v), got (%v, %v)", tc.name, tc.slope, tc.icp, slope, icp)
		}
	}
}

func history(values ...float64) []PeriodValues {
	out := make([]PeriodValues, 0, len(values))
	for i, v := range values {
		out = append(out, PeriodValues{
			Period: time.Date(2026, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC),
			Values: map[string]float64{"netRevenue": v},
		})
	}
	return out
}

func TestGetForecastedMetrics_CollinearProjection(t *testing.T) {
	series := GetForecastedMetrics(history(10, 20, 30), "netRevenue", 3)

	if len(series) != 6 {
		t.Fatalf("expected 6 points, got %d", len(series))
	}
	wantNames := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}
	for i, p := range series {
		if p.Name != wantNames[i] || p.X != i {
			t.Fatalf("point %d: expected %s/%d, got %s/%d", i, wantNames[i], i, p.Name, p.X)
		}
	}
	for i, want := range []float64{40, 50, 60} {
		p := series[3+i]
		if p.Value != nil || p.Forecast == nil {
			t.Fatalf("point %d should be a forecast: %+v", 3+i, p)
		}
		if !approx(*p.Forecast, want) {
			t.Fatalf("point %d: expected forecast %v, got %v", 3+i, want, *p.Forecast)
		}
	}
	for _, p := range series[:3] {
		if p.Value == nil || p.IsForecast() {
			t.Fatalf("historical point should carry a value only: %+v", p)
		}
	}
}

func TestGetForecastedMetrics_ClampsAtZero(t *testing.T) {
	series := GetForecastedMetrics(history(90, 60, 30), "netRevenue", 3)

	if len(series) != 6 {
		t.Fatalf("expected 6 points, got %d", len(series))
	}
	for _, p := range series[3:] {
		if p.Forecast == nil || *p.Forecast < 0 {
			t.Fatalf("forecast must be non-negative: %+v", p)
		}
	}
	if *series[5].Forecast != 0 {
		t.Fatalf("expected clamped forecast 0, got %v", *series[5].Forecast)
	}
}

func TestGetForecastedMetrics_TooLittleHistory(t *testing.T) {
	if got := GetForecastedMetrics(nil, "netRevenue", 3); len(got) != 0 {
		t.Fatalf("expected empty series, got %d points", len(got))
	}
	got := GetForecastedMetrics(history(12), "netRevenue", 3)
	if len(got) != 1 || got[0].IsForecast() {
		t.Fatalf("expected the single historical point, got %+v", got)
	}
}

func TestGetForecastedMetrics_MissingMetricCountsAsZero(t *testing.T) {
	h := history(5, 5)
	delete(h[1].Values, "netRevenue")

	series := GetForecastedMetrics(h, "netRevenue", 1)
	if *series[1].Value != 0 {
		t.Fatalf("expected missing value to be 0, got %v", *series[1].Value)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 points, got %d", len(series))
	}
}

func TestGetForecastedMetrics_YearRollover(t *testing.T) {
	h := []PeriodValues{
		{Period: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), Values: map[string]float64{"grossProfit": 1}},
		{Period: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), Values: map[string]float64{"grossProfit": 2}},
	}

	series := GetForecastedMetrics(h, "grossProfit", DefaultPeriods)
	if len(series) != 2+DefaultPeriods {
		t.Fatalf("expected %d points, got %d", 2+DefaultPeriods, len(series))
	}
	if series[2].Name != "Dec" || series[3].Name != "Jan" || series[4].Name != "Feb" {
		t.Fatalf("unexpected forecast names %s %s %s", series[2].Name, series[3].Name, series[4].Name)
	}
}

func TestGetForecastedMetrics_NonPositivePeriods(t *testing.T) {
	for _, periods := range []int{0, -2} {
		series := GetForecastedMetrics(history(10, 20, 30), "netRevenue", periods)
		if len(series) != 3 {
			t.Fatalf("periods=%d: expected history only, got %d points", periods, len(series))
		}
		for _, p := range series {
			if p.IsForecast() {
				t.Fatalf("periods=%d: unexpected forecast point %+v", periods, p)
			}
		}
	}
}

func TestChartPoint_MarshalJSON(t *testing.T) {
	series := GetForecastedMetrics(history(10, 20), "netRevenue", 1)

	out, err := json.Marshal(series)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"name":"Jan","netRevenue":10},{"name":"Feb","netRevenue":20},{"name":"Mar","netRevenue":null,"forecast":30}]`
	if string(out) != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}
