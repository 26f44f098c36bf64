package persist

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/catalog"
	"github.com/lehigh-university-libraries/catalogsync/internal/catalog/catalogtest"
	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func newModule(video, thumbnail string) *models.Module {
	return &models.Module{
		ID:          "v1",
		Title:       "Counting to Ten",
		Description: "Numbers for toddlers",
		Category:    "math",
		ContentType: models.ContentVideo,
		VideoURL:    video,
		Thumbnail:   thumbnail,
		Tags:        []string{"numbers", "preschool"},
		Price:       4.99,
		Status:      models.StatusActive,
	}
}

func newPolicy(t *testing.T) (*Policy, *catalogtest.Server) {
	t.Helper()
	srv := catalogtest.NewServer(t, nil)
	return NewPolicy(catalog.NewClient(srv.URL, "", 5*time.Second)), srv
}

func TestAttemptWriteSucceedsFirstTime(t *testing.T) {
	p, srv := newPolicy(t)
	doc := models.NewCatalogDocument()
	m := newModule("https://cdn.example.com/v1.mp4", "")
	doc.Modules[m.ID] = m

	out, err := p.AttemptWrite(context.Background(), doc, m)
	if err != nil {
		t.Fatalf("AttemptWrite failed: %v", err)
	}
	if out.Attempts != 1 || out.Degraded {
		t.Errorf("Expected a single undegraded attempt, got %+v", out)
	}
	if srv.Document(t).Modules["v1"].VideoURL != "https://cdn.example.com/v1.mp4" {
		t.Error("Expected module to be stored with its video URL")
	}
}

func TestAttemptWriteDegradesOversizedMedia(t *testing.T) {
	p, srv := newPolicy(t)
	srv.SetMaxBody(32 * 1024)

	video := media.DataURI("video/mp4", bytes.Repeat([]byte{0x42}, 256*1024))
	thumb := media.DataURI("image/png", bytes.Repeat([]byte{0x01}, 1024))
	doc := models.NewCatalogDocument()
	m := newModule(video, thumb)
	doc.Modules[m.ID] = m

	out, err := p.AttemptWrite(context.Background(), doc, m)
	if err != nil {
		t.Fatalf("AttemptWrite failed: %v", err)
	}
	if out.Attempts != 2 || !out.Degraded {
		t.Errorf("Expected a degraded second attempt, got %+v", out)
	}
	if !reflect.DeepEqual(out.Stripped, []string{"videoUrl"}) {
		t.Errorf("Expected only videoUrl stripped, got %v", out.Stripped)
	}

	stored := srv.Document(t).Modules["v1"]
	if stored.VideoURL != "" {
		t.Error("Expected stored video to be empty")
	}
	if stored.MediaStatus != models.MediaStatusMetadataOnly {
		t.Errorf("Expected metadata_only, got %q", stored.MediaStatus)
	}
	if stored.OriginalVideoSize != "256.0KB" {
		t.Errorf("Expected original size 256.0KB, got %q", stored.OriginalVideoSize)
	}
	if stored.Thumbnail != thumb {
		t.Error("Expected small thumbnail to survive degradation")
	}

	want := newModule("", thumb)
	want.MediaStatus = models.MediaStatusMetadataOnly
	want.OriginalVideoSize = "256.0KB"
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("Expected non-media fields preserved\nwant %+v\n got %+v", want, stored)
	}
}

func TestAttemptWriteFailures(t *testing.T) {
	big := media.DataURI("video/mp4", bytes.Repeat([]byte{0x42}, 64*1024))

	tests := []struct {
		name         string
		setup        func(srv *catalogtest.Server)
		video        string
		nilEntity    bool
		wantAttempts int
		wantPosts    int
	}{
		{
			name:         "non-size failure is not retried",
			setup:        func(srv *catalogtest.Server) { srv.FailNext(http.StatusInternalServerError) },
			video:        big,
			wantAttempts: 1,
			wantPosts:    1,
		},
		{
			name:         "degraded write also fails",
			setup:        func(srv *catalogtest.Server) { srv.SetMaxBody(16 * 1024); srv.FailNext(http.StatusRequestEntityTooLarge, http.StatusBadGateway) },
			video:        big,
			wantAttempts: 2,
			wantPosts:    2,
		},
		{
			name:         "nothing strippable",
			setup:        func(srv *catalogtest.Server) { srv.SetMaxBody(64) },
			video:        "https://cdn.example.com/v1.mp4",
			wantAttempts: 1,
			wantPosts:    1,
		},
		{
			name:         "no entity to degrade",
			setup:        func(srv *catalogtest.Server) { srv.SetMaxBody(16 * 1024) },
			video:        big,
			nilEntity:    true,
			wantAttempts: 1,
			wantPosts:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, srv := newPolicy(t)
			tt.setup(srv)

			doc := models.NewCatalogDocument()
			m := newModule(tt.video, "")
			doc.Modules[m.ID] = m
			var entity models.MediaCarrier = m
			if tt.nilEntity {
				entity = nil
			}

			out, err := p.AttemptWrite(context.Background(), doc, entity)
			if !errors.Is(err, ErrPersistenceFailed) {
				t.Fatalf("Expected ErrPersistenceFailed, got %v", err)
			}
			if out.Attempts != tt.wantAttempts {
				t.Errorf("Expected %d attempts, got %d", tt.wantAttempts, out.Attempts)
			}
			if srv.Posts() != tt.wantPosts {
				t.Errorf("Expected %d posts, got %d", tt.wantPosts, srv.Posts())
			}
			if _, ok := srv.Document(t).Modules["v1"]; ok {
				t.Error("Expected remote document to be unchanged")
			}
		})
	}
}

func TestAttemptWriteRefusesTransientMedia(t *testing.T) {
	p, srv := newPolicy(t)
	doc := models.NewCatalogDocument()
	m := newModule("blob:0191c0de-0000-7000-8000-000000000000", "")
	doc.Modules[m.ID] = m

	_, err := p.AttemptWrite(context.Background(), doc, m)
	if !errors.Is(err, ErrTransientMedia) {
		t.Fatalf("Expected ErrTransientMedia, got %v", err)
	}
	if srv.Posts() != 0 {
		t.Errorf("Expected no network call, got %d posts", srv.Posts())
	}
}

func TestDegradeAnnotatesHumanSize(t *testing.T) {
	p := &Policy{Threshold: DefaultThreshold}
	b := &models.Bundle{
		ID:         "b1",
		Name:       "Starter Pack",
		CoverImage: media.DataURI("image/jpeg", bytes.Repeat([]byte{0xff}, 3*512*1024)),
	}

	stripped := p.Degrade(b)
	if !reflect.DeepEqual(stripped, []string{"coverImage"}) {
		t.Errorf("Expected coverImage stripped, got %v", stripped)
	}
	if b.OriginalCoverImageSize != "1.5MB" {
		t.Errorf("Expected 1.5MB, got %q", b.OriginalCoverImageSize)
	}
	if b.CoverImage != "" || b.MediaStatus != models.MediaStatusMetadataOnly {
		t.Errorf("Expected cleared metadata-only bundle, got %+v", b)
	}

	small := &models.Bundle{ID: "b2", CoverImage: "https://cdn.example.com/b2.jpg"}
	if got := p.Degrade(small); len(got) != 0 {
		t.Errorf("Expected nothing stripped, got %v", got)
	}
	if small.MediaStatus != models.MediaStatusFull {
		t.Errorf("Expected full media status, got %q", small.MediaStatus)
	}
}
