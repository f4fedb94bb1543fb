package main

import (
	"slices"
	"strings"
	"testing"

	"github.com/LynnColeArt/radixscan"
)

func TestReadCounts(t *testing.T) {
	got, err := readCounts([]string{"1", "2", "4294967295"}, nil)
	if err != nil {
		t.Fatalf("readCounts(args): %v", err)
	}
	if want := []uint32{1, 2, 4294967295}; !slices.Equal(got, want) {
		t.Errorf("readCounts(args) = %v, want %v", got, want)
	}

	got, err = readCounts(nil, strings.NewReader("5 5\n5\t99\n"))
	if err != nil {
		t.Fatalf("readCounts(stdin): %v", err)
	}
	if want := []uint32{5, 5, 5, 99}; !slices.Equal(got, want) {
		t.Errorf("readCounts(stdin) = %v, want %v", got, want)
	}

	for _, bad := range []string{"-1", "4294967296", "x"} {
		if _, err := readCounts([]string{bad}, nil); err == nil {
			t.Errorf("readCounts(%q) succeeded", bad)
		}
	}
}

func TestRunCPU(t *testing.T) {
	sizing := radixscan.Sizing{WorkgroupSize: 4, ElementsPerThread: 2}
	got, err := run("cpu", sizing, []uint32{5, 5, 5, 99, 99}, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := []uint32{0, 5, 10}; !slices.Equal(got[:3], want) {
		t.Errorf("run = %v, want prefix %v", got, want)
	}

	if _, err := run("cpu", sizing, []uint32{1, 2}, 5); !radixscan.IsInvalidArgError(err) {
		t.Errorf("count past input: got %v, want invalid argument error", err)
	}

	if _, err := run("tpu", sizing, nil, 0); err == nil {
		t.Error("unknown backend accepted")
	}
}
