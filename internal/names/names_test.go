package names

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "three names",
			input: "Blue-Eyes White Dragon, Dark Magician, Nonexistent Card XYZ",
			want:  []string{"Blue-Eyes White Dragon", "Dark Magician", "Nonexistent Card XYZ"},
		},
		{
			name:  "empty pieces dropped",
			input: " ,Kuriboh,, ,Dark Magician,",
			want:  []string{"Kuriboh", "Dark Magician"},
		},
		{
			name:  "duplicates kept",
			input: "Kuriboh, Kuriboh",
			want:  []string{"Kuriboh", "Kuriboh"},
		},
		{
			name:  "only separators",
			input: ", ,",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitList(tt.input)); diff != "" {
				t.Errorf("SplitList mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitLines_DropsBlankLines(t *testing.T) {
	got := SplitLines("Kuriboh\n\nDark Magician\n")
	want := []string{"Kuriboh", "Dark Magician"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitLines mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitLines_CRLF(t *testing.T) {
	got := SplitLines("Kuriboh\r\n  Dark Magician  \r\n\r\n")
	want := []string{"Kuriboh", "Dark Magician"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitLines mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLines_MatchesSplitLines(t *testing.T) {
	content := "Kuriboh\n\nDark Magician\n  \nKuriboh"
	got, err := ReadLines(strings.NewReader(content))
	if err != nil {
		t.Fatalf("reading lines: %v", err)
	}
	if diff := cmp.Diff(SplitLines(content), got); diff != "" {
		t.Errorf("ReadLines mismatch (-want +got):\n%s", diff)
	}
}

func TestIsList(t *testing.T) {
	if IsList("Dark Magician") {
		t.Error("expected single name not to be a list")
	}
	if !IsList("Dark Magician,") {
		t.Error("expected input with a comma to be a list")
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		ok          bool
	}{
		{"cards.csv", "", true},
		{"CARDS.CSV", "application/octet-stream", true},
		{"cards.txt", "text/csv", true},
		{"cards", "application/vnd.ms-excel; csv", true},
		{"cards.txt", "text/plain", false},
		{"cards.json", "application/json", false},
	}

	for _, tt := range tests {
		err := ValidateUpload(tt.filename, tt.contentType)
		if tt.ok && err != nil {
			t.Errorf("%s (%s): unexpected error %v", tt.filename, tt.contentType, err)
		}
		if !tt.ok && !errors.Is(err, ErrFileFormat) {
			t.Errorf("%s (%s): expected ErrFileFormat, got %v", tt.filename, tt.contentType, err)
		}
	}
}

func TestClean(t *testing.T) {
	got := Clean([]string{" Sangan ", "", "\tKuriboh\r", "   "})
	want := []string{"Sangan", "Kuriboh"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean mismatch (-want +got):\n%s", diff)
	}
}
