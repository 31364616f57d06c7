package media

import (
	"encoding/json"
	"testing"
)

func TestItemID_Unmarshal(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		want  int64
	}{
		{`42`, true, 42},
		{`1`, true, 1},
		{`0`, false, 0},
		{`-1`, false, 0},
		{`"abc"`, false, 0},
		{`"12"`, false, 0},
		{`1.5`, false, 0},
		{`null`, false, 0},
		{`3.0`, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var it Item
			if err := json.Unmarshal([]byte(`{"id":`+tt.raw+`}`), &it); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok := it.ID.Int64()
			if ok != tt.valid {
				t.Fatalf("valid = %v, want %v", ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Errorf("id = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestItemID_MarshalKeepsRawForm(t *testing.T) {
	b, err := json.Marshal(Item{ID: RawID(`"abc"`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back["id"] != "abc" {
		t.Errorf("expected raw id to survive, got %v", back["id"])
	}
}

func TestOrderSkipsInvalidIDs(t *testing.T) {
	items := []Item{{ID: NewID(3)}, {ID: RawID(`"x"`)}, {ID: NewID(1)}, {ID: NewID(0)}}
	got := Order(items)
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Errorf("Order = %v, want [3 1]", got)
	}
}

func TestValidRating(t *testing.T) {
	for r := -1; r <= 4; r++ {
		want := r >= 0 && r <= 3
		if got := ValidRating(r); got != want {
			t.Errorf("ValidRating(%d) = %v, want %v", r, got, want)
		}
	}
}

func TestInferMediaType(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{"explicit video", Item{MediaType: "video"}, TypeVideo},
		{"explicit wins over mime", Item{MediaType: "image", MIMEType: "video/mp4"}, TypeImage},
		{"mime video", Item{MIMEType: "video/mp4"}, TypeVideo},
		{"mime uppercase", Item{MIMEType: "VIDEO/QUICKTIME"}, TypeVideo},
		{"mime image", Item{MIMEType: "image/jpeg"}, TypeImage},
		{"nothing", Item{}, TypeImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferMediaType(tt.item); got != tt.want {
				t.Errorf("InferMediaType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetMIMEType(t *testing.T) {
	tests := []struct {
		ext          string
		expectedMIME string
		expectError  bool
	}{
		{".jpg", "image/jpeg", false},
		{".JPEG", "image/jpeg", false},
		{".heic", "image/heic", false},
		{".mp4", "video/mp4", false},
		{".mov", "video/quicktime", false},
		{".txt", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			mime, err := GetMIMEType(tt.ext)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q, got nil", tt.ext)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mime != tt.expectedMIME {
				t.Errorf("GetMIMEType(%q) = %q, want %q", tt.ext, mime, tt.expectedMIME)
			}
		})
	}
}

func TestMIMETypeForItem(t *testing.T) {
	if got := MIMETypeForItem(Item{MIMEType: "image/png", Filename: "a.mov"}); got != "image/png" {
		t.Errorf("explicit mime ignored: %q", got)
	}
	if got := MIMETypeForItem(Item{Filename: "clip.MOV"}); got != "video/quicktime" {
		t.Errorf("extension fallback failed: %q", got)
	}
	if got := MIMETypeForItem(Item{Filename: "notes"}); got != "application/octet-stream" {
		t.Errorf("default fallback failed: %q", got)
	}
}
