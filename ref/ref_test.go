package ref_test

import (
	"errors"
	"testing"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/ref"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		raw     string
		ns      ref.Namespace
		key     string
		num     int64
		numeric bool
	}{
		{"pageid:110", ref.NsPageID, "110", 110, true},
		{"postid:7", ref.NsPostID, "7", 7, true},
		{"patid:349", ref.NsPatID, "349", 349, true},
		{"catid:3", ref.NsCatID, "3", 3, true},
		{"username:jane_doe", ref.NsUsername, "jane_doe", 0, false},
		{"refid:welcome-page", ref.NsRefID, "welcome-page", 0, false},
		{"extid:crm-4711", ref.NsExtID, "crm-4711", 0, false},
		{"ssoid:auth0|abc123", ref.NsSSOID, "auth0|abc123", 0, false},
		{"emburl:https://blog.example.com/post", ref.NsEmbURL, "https://blog.example.com/post", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r, err := ref.Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.raw, err)
			}
			if r.Namespace != tt.ns {
				t.Errorf("namespace = %q, want %q", r.Namespace, tt.ns)
			}
			if r.Key != tt.key {
				t.Errorf("key = %q, want %q", r.Key, tt.key)
			}
			if r.Num != tt.num {
				t.Errorf("num = %d, want %d", r.Num, tt.num)
			}
			if r.IsNumeric() != tt.numeric {
				t.Errorf("IsNumeric() = %v, want %v", r.IsNumeric(), tt.numeric)
			}
			if r.String() != tt.raw {
				t.Errorf("String() = %q, want %q", r.String(), tt.raw)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"pageid",               // no colon
		"pageid:",              // empty key
		":110",                 // empty prefix
		"pageid:abc",           // non-numeric key
		"pageid:-3",            // negative
		"pageid:0",             // zero
		"username:",            // empty
		"username:_leading",    // leading separator
		"username:trailing_",   // trailing separator
		"username:has space",   // space
		"refid:no spaces here", // space
		"emburl:ftp://x.com/a", // wrong scheme
		"emburl:/relative",     // not absolute
		"wikipage:110",         // unknown prefix: never guessed
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := ref.Parse(raw)
			if err == nil {
				t.Fatalf("Parse(%q): expected error", raw)
			}
			if !errors.Is(err, taskapi.ErrInvalidRef) {
				t.Errorf("Parse(%q): error %v should wrap ErrInvalidRef", raw, err)
			}
		})
	}
}

func TestParseAll_IndependentSlots(t *testing.T) {
	refs, errs := ref.ParseAll([]string{"pageid:1", "bogus", "username:amy"})

	if len(refs) != 3 || len(errs) != 3 {
		t.Fatalf("expected 3 slots, got %d refs / %d errs", len(refs), len(errs))
	}
	if errs[0] != nil {
		t.Errorf("slot 0: unexpected error %v", errs[0])
	}
	if errs[1] == nil {
		t.Error("slot 1: expected error")
	}
	if errs[2] != nil {
		t.Errorf("slot 2: unexpected error %v", errs[2])
	}
	if refs[2].Key != "amy" {
		t.Errorf("slot 2 key = %q, want \"amy\"", refs[2].Key)
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	ref.MustParse("nope")
}
