package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/wealthflow/internal/domain"
)

// Archive is the JSON document written to the backup bucket: the three
// collections plus the derived snapshot at export time.
type Archive struct {
	UserID       string               `json:"user_id"`
	ExportedAt   time.Time            `json:"exported_at"`
	Accounts     []domain.Account     `json:"accounts"`
	Transactions []domain.Transaction `json:"transactions"`
	Holdings     []domain.Holding     `json:"holdings"`
	Snapshot     domain.Snapshot      `json:"snapshot"`
}

// Exporter writes per-user JSON backups to a GCS bucket. It assumes
// Application Default Credentials are configured.
type Exporter struct {
	bucket string
}

// NewExporter creates an exporter targeting the given bucket.
func NewExporter(bucket string) *Exporter {
	return &Exporter{bucket: bucket}
}

// Export marshals the archive and uploads it under
// backups/<userID>/<timestamp>.json. Returns the object name.
func (e *Exporter) Export(ctx context.Context, archive Archive) (string, error) {
	if e.bucket == "" {
		return "", fmt.Errorf("Export: no backup bucket configured")
	}
	if archive.UserID == "" {
		return "", fmt.Errorf("Export: user id is required")
	}
	if archive.ExportedAt.IsZero() {
		archive.ExportedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Export: marshaling archive: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("Export: create storage client: %w", err)
	}
	defer client.Close()

	objectName := fmt.Sprintf("backups/%s/%s.json", archive.UserID, archive.ExportedAt.Format("20060102T150405Z"))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(e.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Export: writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Export: finalize upload: %w", err)
	}

	return objectName, nil
}
