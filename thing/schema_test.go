package thing_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/thing"
)

func testPage() *thing.Page {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &thing.Page{
		Entity:         taskapi.Entity{CreatedAt: created, UpdatedAt: created},
		ID:             110,
		Title:          "Welcome",
		URLPath:        "/welcome",
		Excerpt:        "Say hi here.",
		AuthorID:       349,
		CategoryID:     3,
		Tags:           []string{"intro"},
		NumPostsTotal:  12,
		LastActivityAt: created.Add(48 * time.Hour),
	}
}

// ---------------------------------------------------------------------------
// Projection
// ---------------------------------------------------------------------------

func TestProject_MandatoryFieldsAlwaysPresent(t *testing.T) {
	got := thing.Project(testPage(), thing.InclusionSpec{})

	if got["kind"] != "Page" {
		t.Errorf(`kind = %v, want "Page"`, got["kind"])
	}
	if got["id"] != "pageid:110" {
		t.Errorf(`id = %v, want "pageid:110"`, got["id"])
	}
	if len(got) != 2 {
		t.Errorf("empty spec should project only kind and id, got %v", got)
	}
}

func TestProject_FalseOrAbsentFlagsOmitAttr(t *testing.T) {
	got := thing.Project(testPage(), thing.InclusionSpec{
		"title":   true,
		"excerpt": false,
		// urlPath absent
	})

	if got["title"] != "Welcome" {
		t.Errorf(`title = %v, want "Welcome"`, got["title"])
	}
	if _, present := got["excerpt"]; present {
		t.Error("excerpt flagged false must be absent, not present-with-null")
	}
	if _, present := got["urlPath"]; present {
		t.Error("unrequested urlPath must be absent")
	}
}

func TestProject_RequestedButEmptyStillPresent(t *testing.T) {
	p := testPage()
	p.Excerpt = ""
	got := thing.Project(p, thing.InclusionSpec{"excerpt": true})

	v, present := got["excerpt"]
	if !present {
		t.Fatal("requested attribute must be present even when empty")
	}
	if v != "" {
		t.Errorf("excerpt = %v, want empty string", v)
	}
}

func TestProject_RefAttrsUseWireRefs(t *testing.T) {
	got := thing.Project(testPage(), thing.InclusionSpec{
		"authorRef":   true,
		"categoryRef": true,
	})
	if got["authorRef"] != "patid:349" {
		t.Errorf(`authorRef = %v, want "patid:349"`, got["authorRef"])
	}
	if got["categoryRef"] != "catid:3" {
		t.Errorf(`categoryRef = %v, want "catid:3"`, got["categoryRef"])
	}
}

func TestProject_Deterministic(t *testing.T) {
	spec := thing.DefaultInclusion(thing.KindPages)
	a, err := json.Marshal(thing.Project(testPage(), spec))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(thing.Project(testPage(), spec))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("identical projections must be byte-identical:\n%s\n%s", a, b)
	}
}

// ---------------------------------------------------------------------------
// Schema checks
// ---------------------------------------------------------------------------

func TestCheckInclusionSpec_UnknownAttrRejected(t *testing.T) {
	err := thing.CheckInclusionSpec(thing.KindPages, thing.InclusionSpec{
		"title":    true,
		"bodyText": true, // a Posts attribute, illegal for Pages
	})
	if err == nil {
		t.Fatal("expected unknown attribute to be rejected")
	}
	if !errors.Is(err, taskapi.ErrDecode) {
		t.Errorf("error %v should wrap ErrDecode", err)
	}
}

func TestCheckInclusionSpec_FalseFlagStillChecked(t *testing.T) {
	err := thing.CheckInclusionSpec(thing.KindMembers, thing.InclusionSpec{
		"usrname": false, // misspelled
	})
	if err == nil {
		t.Fatal("misspelled attribute must be rejected even when flagged false")
	}
}

func TestLegalAttrs_SortedAndPerKind(t *testing.T) {
	attrs := thing.LegalAttrs(thing.KindTags)
	want := []string{"label", "numUses"}
	if len(attrs) != len(want) {
		t.Fatalf("LegalAttrs(Tags) = %v, want %v", attrs, want)
	}
	for i := range want {
		if attrs[i] != want[i] {
			t.Fatalf("LegalAttrs(Tags) = %v, want %v", attrs, want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"Pages", "Posts", "Members", "Categories", "Tags", "Events"} {
		if _, err := thing.ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q): %v", s, err)
		}
	}
	if _, err := thing.ParseKind("Wikis"); err == nil {
		t.Error("ParseKind(\"Wikis\") should fail")
	}
}
