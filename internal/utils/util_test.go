package utils

import (
	"slices"
	"testing"
	"time"
)

func TestParseDurationString(t *testing.T) {
	tests := map[string]int{
		"90":      90,
		"0":       0,
		"1m30s":   90,
		"2h":      7200,
		"1:30":    90,
		"1:02:03": 3723,
		" 45 ":    45,
		"":        -1,
		"-5":      -1,
		"abc":     -1,
		"1:75":    -1,
		"1:2:3:4": -1,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := ParseDurationString(in); got != want {
				t.Errorf("ParseDurationString(%q) = %d, want %d", in, got, want)
			}
		})
	}
}

func TestPrettyTime(t *testing.T) {
	if got := PrettyTime(59); got != "0:59" {
		t.Errorf("got %s", got)
	}
	if got := PrettyTime(3723); got != "1:02:03" {
		t.Errorf("got %s", got)
	}
	if got := PrettyDuration(212 * time.Second); got != "3:32" {
		t.Errorf("got %s", got)
	}
}

func TestShuffleSliceKeepsElements(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := slices.Clone(in)
	ShuffleSlice(got)
	slices.Sort(got)
	if !slices.Equal(in, got) {
		t.Errorf("shuffle changed the multiset: %v", got)
	}
}

func TestEscapeMd(t *testing.T) {
	if got := EscapeMd("*bold* _it_"); got != `\*bold\* \_it\_` {
		t.Errorf("got %s", got)
	}
}
