package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"bugsort/internal/services"
)

func TestCSVRoundTrip(t *testing.T) {
	items := []Item{
		{
			ID: "a1", Filename: "a.png", OCRText: "Sign In, please", OCRConfidence: 0.92,
			NormalizedText: "sign in please", PredictedScreenID: "login", ScreenConfidence: 1,
			ClusterID: "screen_login", Category: "authentication_access", Comment: "otp \"never\" arrives",
			UserTag: "beta", PriorCategory: "", SourcePath: "/in/a.png",
		},
		{ID: "b2", Filename: "b.png", OCRText: "உள்நுழை", ClusterID: "vc_1", Category: "functional_errors"},
	}
	data, err := MarshalCSV(items)
	if err != nil {
		t.Fatalf("MarshalCSV: %v", err)
	}
	got, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, items)
	}
}

func TestReadCSVLenient(t *testing.T) {
	input := "\ufeffID,Filename,ocr_confidence,extra\n" +
		"x1,photo1.jpg,abc,zzz\n" +
		"x2,photo2.jpg,1.7\n" +
		"x3,photo3.jpg,-2,\n"
	items, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	want := []float64{0, 1, 0}
	for i, item := range items {
		if item.OCRConfidence != want[i] {
			t.Fatalf("item %s confidence = %v, want %v", item.ID, item.OCRConfidence, want[i])
		}
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing id column", "filename\na.png\n"},
		{"missing filename column", "id\nx\n"},
		{"empty id", "id,filename\n,a.png\n"},
		{"duplicate id", "id,filename\nx,a.png\nx,b.png\n"},
		{"broken quoting", "id,filename\n\"x,a.png\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input)); !errors.Is(err, services.ErrInput) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
	if _, err := ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error for missing file, got %v", err)
	}
}

func TestClustersPreserveMemberKinds(t *testing.T) {
	input := `{"vc_2": ["b", 17, "a"], "screen_home": [3.0, "z"]}`
	clusters, err := ReadClusters(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadClusters: %v", err)
	}
	data, err := MarshalClusters(clusters)
	if err != nil {
		t.Fatalf("MarshalClusters: %v", err)
	}
	want := "{\n  \"screen_home\": [\n    3.0,\n    \"z\"\n  ],\n  \"vc_2\": [\n    17,\n    \"a\",\n    \"b\"\n  ]\n}\n"
	if string(data) != want {
		t.Fatalf("unexpected json:\n%s", data)
	}
	if !clusters["vc_2"][1].Numeric() || clusters["vc_2"][0].Numeric() {
		t.Fatalf("member kinds lost: %+v", clusters["vc_2"])
	}
	if got := clusters.Strings()["vc_2"]; !reflect.DeepEqual(got, []string{"b", "17", "a"}) {
		t.Fatalf("Strings() = %v", got)
	}
}

func TestReadClustersRejectsBadMembers(t *testing.T) {
	for _, input := range []string{`{"a": [true]}`, `{"a": "x"}`, `[1,2]`, `{`} {
		if _, err := ReadClusters(strings.NewReader(input)); !errors.Is(err, services.ErrInput) {
			t.Fatalf("ReadClusters(%s) expected input error, got %v", input, err)
		}
	}
}

func TestIDDerivation(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("same bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	idA, err := IDFromContent(a)
	if err != nil {
		t.Fatal(err)
	}
	idB, _ := IDFromContent(b)
	if idA != idB || len(idA) != 40 {
		t.Fatalf("content ids should match: %s vs %s", idA, idB)
	}
	pA, _ := IDFromPath(a)
	pB, _ := IDFromPath(b)
	if pA == pB {
		t.Fatal("path ids should differ")
	}
	again, _ := IDFunc(IDSourcePath)(a)
	if again != pA {
		t.Fatal("path id not stable")
	}
	if _, err := IDFromContent(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
