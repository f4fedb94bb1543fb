package radixscan

import (
	"runtime/debug"
	"testing"
)

func TestModuleVersion(t *testing.T) {
	tests := []struct {
		name        string
		info        debug.BuildInfo
		wantVersion string
		wantSum     string
	}{
		{
			"main module",
			debug.BuildInfo{Main: debug.Module{Path: root, Version: "(devel)"}},
			"(devel)", "",
		},
		{
			"dependency",
			debug.BuildInfo{
				Main: debug.Module{Path: "example.com/sorter"},
				Deps: []*debug.Module{
					{Path: "gonum.org/v1/gonum", Version: "v0.16.0"},
					{Path: root, Version: "v1.2.0", Sum: "h1:abc"},
				},
			},
			"v1.2.0", "h1:abc",
		},
		{
			"replaced by version",
			debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v1.2.0", Replace: &debug.Module{Path: root, Version: "v1.2.1", Sum: "h1:def"}},
			}},
			"v1.2.0=>v1.2.1", "h1:def",
		},
		{
			"replaced by directory",
			debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v1.2.0", Replace: &debug.Module{Path: "../radixscan"}},
			}},
			"v1.2.0=>../radixscan", "",
		},
		{
			"absent",
			debug.BuildInfo{Main: debug.Module{Path: "example.com/other"}},
			"", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, sum := moduleVersion(&tt.info)
			if v != tt.wantVersion || sum != tt.wantSum {
				t.Errorf("moduleVersion = (%q, %q), want (%q, %q)", v, sum, tt.wantVersion, tt.wantSum)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	v, _ := Version()
	got := VersionString()
	if v == "" && got != "(unknown)" {
		t.Errorf("VersionString() = %q with no version, want (unknown)", got)
	}
	if v != "" && got != v {
		t.Errorf("VersionString() = %q, want %q", got, v)
	}
}
