package testrunner

import "testing"

func TestExtractFailureLines(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "jest style FAIL",
			output: "PASS src/a.test.ts\nFAIL src/b.test.ts\n  ✕ renders header (12 ms)\n",
			want:   []string{"FAIL src/b.test.ts", "✕ renders header (12 ms)"},
		},
		{
			name:   "error prefix",
			output: "something\nError: cannot read property 'foo'\nat Object.<anonymous>",
			want:   []string{"Error: cannot read property 'foo'"},
		},
		{
			name:   "no markers",
			output: "all 42 tests passed\n",
			want:   nil,
		},
		{
			name:   "empty output",
			output: "",
			want:   nil,
		},
		{
			name:   "failed summary",
			output: "Tests: 1 failed, 3 passed\nFailed: src/c.test.ts",
			want:   []string{"Failed: src/c.test.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFailureLines(tt.output)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractFailureLines() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractFailureLinesCapped(t *testing.T) {
	var output string
	for i := 0; i < 100; i++ {
		output += "Error: boom\n"
	}

	got := ExtractFailureLines(output)
	if len(got) != maxFailureLines {
		t.Errorf("extracted %d lines, want cap of %d", len(got), maxFailureLines)
	}
}

func TestFailureLinesCombinesStreams(t *testing.T) {
	result := TestResult{
		Stdout: "FAIL src/a.test.ts",
		Stderr: "Error: assertion failed",
	}

	got := FailureLines(result)
	if len(got) != 2 {
		t.Fatalf("FailureLines() = %v, want lines from both streams", got)
	}
}
