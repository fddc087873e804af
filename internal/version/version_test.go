package version

import "testing"

func TestString(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	defer func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	}()

	tests := []struct {
		name                       string
		version, commit, buildTime string
		want                       string
	}{
		{"defaults", "dev", "unknown", "unknown", "dev (unknown) built unknown"},
		{"release", "0.4.1", "9f2c1ab", "2026-03-02T08:15:00Z", "0.4.1 (9f2c1ab) built 2026-03-02T08:15:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogAttrs(t *testing.T) {
	attrs := LogAttrs()
	if len(attrs) != 6 {
		t.Fatalf("len(LogAttrs()) = %d, want 6", len(attrs))
	}
	for i := 0; i < len(attrs); i += 2 {
		if _, ok := attrs[i].(string); !ok {
			t.Errorf("attrs[%d] = %v, want a string key", i, attrs[i])
		}
	}
	if attrs[1] != Version || attrs[3] != Commit || attrs[5] != BuildTime {
		t.Errorf("LogAttrs() = %v", attrs)
	}
}
