package export

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/models"
	"github.com/parquet-go/parquet-go"
)

// ModuleRow is the flattened, media-free shape of a module for analytics exports.
// Media payloads are reduced to their kind and stored length.
type ModuleRow struct {
	ID                    string   `json:"id" parquet:"id"`
	Title                 string   `json:"title" parquet:"title"`
	CategoryID            string   `json:"category_id" parquet:"category_id"`
	CategoryName          string   `json:"category_name" parquet:"category_name"`
	ContentType           string   `json:"content_type" parquet:"content_type"`
	AgeGroup              string   `json:"age_group" parquet:"age_group"`
	Duration              string   `json:"duration" parquet:"duration"`
	Tags                  []string `json:"tags" parquet:"tags,list"`
	Price                 float64  `json:"price" parquet:"price"`
	Status                string   `json:"status" parquet:"status"`
	MediaStatus           string   `json:"media_status" parquet:"media_status"`
	VideoKind             string   `json:"video_kind" parquet:"video_kind"`
	AudioKind             string   `json:"audio_kind" parquet:"audio_kind"`
	ThumbnailKind         string   `json:"thumbnail_kind" parquet:"thumbnail_kind"`
	MediaBytes            int64    `json:"media_bytes" parquet:"media_bytes"` // stored length of all media fields
	OriginalVideoSize     string   `json:"original_video_size" parquet:"original_video_size"`
	OriginalAudioSize     string   `json:"original_audio_size" parquet:"original_audio_size"`
	OriginalThumbnailSize string   `json:"original_thumbnail_size" parquet:"original_thumbnail_size"`
	UpdatedAt             string   `json:"updated_at" parquet:"updated_at"` // RFC 3339
}

// ModuleRows flattens every module in doc, ordered by ID
func ModuleRows(doc *models.CatalogDocument) []ModuleRow {
	ids := make([]string, 0, len(doc.Modules))
	for id := range doc.Modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]ModuleRow, 0, len(ids))
	for _, id := range ids {
		m := doc.Modules[id]
		row := ModuleRow{
			ID:                    m.ID,
			Title:                 m.Title,
			CategoryID:            m.Category,
			ContentType:           string(m.ContentType),
			AgeGroup:              m.AgeGroup,
			Duration:              m.Duration,
			Tags:                  m.Tags,
			Price:                 m.Price,
			Status:                string(m.Status),
			MediaStatus:           mediaStatusLabel(m.MediaStatus),
			VideoKind:             string(models.ParseMediaAsset(m.VideoURL).Kind),
			AudioKind:             string(models.ParseMediaAsset(m.AudioURL).Kind),
			ThumbnailKind:         string(models.ParseMediaAsset(m.Thumbnail).Kind),
			MediaBytes:            int64(len(m.VideoURL) + len(m.AudioURL) + len(m.Thumbnail)),
			OriginalVideoSize:     m.OriginalVideoSize,
			OriginalAudioSize:     m.OriginalAudioSize,
			OriginalThumbnailSize: m.OriginalThumbnailSize,
		}
		if c, ok := doc.Categories[m.Category]; ok {
			row.CategoryName = c.Name
		}
		if !m.UpdatedAt.IsZero() {
			row.UpdatedAt = m.UpdatedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteParquet writes one ModuleRow per module to w
func WriteParquet(w io.Writer, doc *models.CatalogDocument) (int, error) {
	rows := ModuleRows(doc)

	writer := parquet.NewGenericWriter[ModuleRow](w)
	n, err := writer.Write(rows)
	if err != nil {
		_ = writer.Close()
		return n, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("failed to finish parquet file: %w", err)
	}

	slog.Debug("Wrote module rows", "rows", n)
	return n, nil
}

// ReadParquet loads module rows previously written by WriteParquet
func ReadParquet(r io.ReaderAt, size int64) ([]ModuleRow, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[ModuleRow](pf)
	defer reader.Close()

	var records []ModuleRow
	rows := make([]ModuleRow, 128)
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			records = append(records, rows[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return records, nil
}

func mediaStatusLabel(s models.MediaStatus) string {
	if s == models.MediaStatusFull {
		return "full"
	}
	return string(s)
}
