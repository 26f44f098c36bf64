package models

import (
	"encoding/json"
	"testing"
)

func TestParseMediaAsset(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected MediaKind
	}{
		{name: "empty", value: "", expected: MediaNone},
		{name: "whitespace", value: "   ", expected: MediaNone},
		{name: "blob handle", value: "blob:abc", expected: MediaBlobHandle},
		{name: "upload reference", value: "upload:up1", expected: MediaUploadRef},
		{name: "data uri", value: "data:video/mp4;base64,AAAA", expected: MediaDataURI},
		{name: "upper case data uri", value: "DATA:image/png;base64,AAAA", expected: MediaDataURI},
		{name: "https url", value: "https://cdn.example.org/a.mp4", expected: MediaRemoteURL},
		{name: "http url", value: "http://cdn.example.org/a.mp3", expected: MediaRemoteURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := ParseMediaAsset(tt.value)
			if asset.Kind != tt.expected {
				t.Errorf("Expected kind %s, got %s", tt.expected, asset.Kind)
			}
		})
	}
}

func TestMediaAssetValueRoundTrip(t *testing.T) {
	for _, v := range []string{"", "blob:abc", "upload:up1", "data:image/png;base64,AAAA", "https://x.org/y.png"} {
		if got := ParseMediaAsset(v).Value(); got != v {
			t.Errorf("Expected %q, got %q", v, got)
		}
	}
}

func TestMediaAssetIsDurable(t *testing.T) {
	if ParseMediaAsset("blob:abc").IsDurable() {
		t.Error("blob handle must not be durable")
	}
	if ParseMediaAsset("upload:up1").IsDurable() {
		t.Error("upload reference must not be durable")
	}
	if !ParseMediaAsset("data:image/png;base64,AAAA").IsDurable() {
		t.Error("data uri should be durable")
	}
	if !ParseMediaAsset("https://x.org/y.png").IsDurable() {
		t.Error("remote url should be durable")
	}
}

func TestDocumentDecodeFillsMissingCollections(t *testing.T) {
	var doc CatalogDocument
	data := `{"modules":{"v1":{"id":"v1","title":"Alphabet Song"}},"packages":null,"comments":{"c1":{"text":"hi"}}}`
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if doc.Packages == nil || doc.Users == nil || doc.UploadQueue == nil || doc.Settings == nil {
		t.Fatal("Expected every collection to be non-nil after decode")
	}
	if len(doc.Modules) != 1 {
		t.Errorf("Expected 1 module, got %d", len(doc.Modules))
	}
	if string(doc.Comments["c1"]) != `{"text":"hi"}` {
		t.Errorf("Expected raw comment preserved, got %s", doc.Comments["c1"])
	}
}

func TestDocumentDecodeDropsNullEntities(t *testing.T) {
	var doc CatalogDocument
	if err := json.Unmarshal([]byte(`{"modules":{"v1":null}}`), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(doc.Modules) != 0 {
		t.Errorf("Expected null module to be dropped, got %d modules", len(doc.Modules))
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("Expected valid document, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := NewCatalogDocument()
	doc.Modules["v1"] = &Module{ID: "v1", Title: "Alphabet Song", Tags: []string{"abc"}}

	clone, err := doc.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	clone.Modules["v1"].Title = "Changed"
	clone.Modules["v1"].Tags[0] = "changed"
	delete(clone.Modules, "v1")

	if doc.Modules["v1"] == nil || doc.Modules["v1"].Title != "Alphabet Song" || doc.Modules["v1"].Tags[0] != "abc" {
		t.Error("Expected original document to be unaffected by clone edits")
	}
}

func TestValidateDetectsMismatchedKey(t *testing.T) {
	doc := NewCatalogDocument()
	doc.Categories["a"] = &Category{ID: "b"}
	if err := doc.Validate(); err == nil {
		t.Error("Expected error for mismatched category key")
	}
}

func TestTransientRefs(t *testing.T) {
	doc := NewCatalogDocument()
	doc.Modules["v1"] = &Module{ID: "v1", VideoURL: "blob:abc", Thumbnail: "https://x.org/t.png"}
	doc.Packages["p1"] = &Package{ID: "p1", CoverImage: "data:image/png;base64,AA=="}
	doc.Packages["p2"] = &Package{ID: "p2", CoverImage: "upload:u1"}
	doc.UploadQueue["u1"] = &UploadQueueEntry{ID: "u1", AssetRef: "blob:def"}

	refs := doc.TransientRefs()
	expected := []string{"modules/v1.videoUrl", "packages/p2.coverImage", "uploadQueue/u1.assetRef"}
	if len(refs) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, refs)
	}
	for i := range expected {
		if refs[i] != expected[i] {
			t.Errorf("Expected %s, got %s", expected[i], refs[i])
		}
	}
}

func TestUploadID(t *testing.T) {
	if got := ParseMediaAsset("UPLOAD: up1").UploadID(); got != "up1" {
		t.Errorf("Expected up1, got %q", got)
	}
	if got := ParseMediaAsset("blob:abc").UploadID(); got != "" {
		t.Errorf("Expected no upload id for a blob handle, got %q", got)
	}
}

func TestModulesInCategory(t *testing.T) {
	doc := NewCatalogDocument()
	doc.Modules["b"] = &Module{ID: "b", Category: "songs"}
	doc.Modules["a"] = &Module{ID: "a", Category: "songs"}
	doc.Modules["c"] = &Module{ID: "c", Category: "stories"}

	ids := doc.ModulesInCategory("songs")
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("Expected [a b], got %v", ids)
	}
}

func TestEnumValidity(t *testing.T) {
	if !StatusActive.Valid() || ActiveStatus("archived").Valid() {
		t.Error("ActiveStatus validity mismatch")
	}
	if !ContentAudio.Valid() || ContentType("pdf").Valid() {
		t.Error("ContentType validity mismatch")
	}
	if !MediaStatusMetadataOnly.Valid() || MediaStatus("partial").Valid() {
		t.Error("MediaStatus validity mismatch")
	}
	if !OrderRefunded.Valid() || OrderStatus("lost").Valid() {
		t.Error("OrderStatus validity mismatch")
	}
	if !UploadFailed.IsFinished() || UploadProcessing.IsFinished() {
		t.Error("UploadStatus finished mismatch")
	}
}
