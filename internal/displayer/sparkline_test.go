package displayer

import (
	"testing"
	"unicode/utf8"

	"smartobd/internal/obd"
	"smartobd/internal/sampler"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"empty", nil, 10, ""},
		{"flat", []float64{800, 800, 800}, 10, "▁▁▁"},
		{"ramp", []float64{0, 1, 2, 3, 4, 5, 6, 7}, 10, "▁▂▃▄▅▆▇█"},
		{"extremes", []float64{600, 4000, 600}, 10, "▁█▁"},
		{"truncated", []float64{0, 7, 0, 7}, 2, "▁█"},
	}
	for _, tt := range tests {
		if got := Sparkline(tt.values, tt.width); got != tt.want {
			t.Errorf("%s: expected %q, got=%q", tt.name, tt.want, got)
		}
	}
}

func TestPushKeepsBoundedHistory(t *testing.T) {
	d := &Displayer{}
	for i := 0; i < historySize+15; i++ {
		d.push(sampler.Sample{
			Elapsed: float64(i),
			Fields:  []string{"rpm", "speed"},
			Values:  map[string]obd.Value{"rpm": obd.Number(float64(i))},
		})
	}
	d.push(sampler.Sample{Fields: []string{"rpm"}, Values: map[string]obd.Value{}})

	if len(d.history) != historySize {
		t.Errorf("expected %d points, got=%d", historySize, len(d.history))
	}
	if d.history[len(d.history)-1] != float64(historySize+14) {
		t.Errorf("expected newest point last, got=%v", d.history[len(d.history)-1])
	}
	if d.ticks != historySize+16 {
		t.Errorf("expected absent samples to count as ticks, got=%d", d.ticks)
	}
	if n := utf8.RuneCountInString(Sparkline(d.history, historySize)); n != historySize {
		t.Errorf("expected %d runes, got=%d", historySize, n)
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(obd.Number(50.19607843)); got != "50.2" {
		t.Errorf("expected 50.2, got=%q", got)
	}
	if got := formatValue(obd.Text("WVW")); got != "WVW" {
		t.Errorf("expected WVW, got=%q", got)
	}
}
