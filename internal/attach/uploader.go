// Package attach turns staged local images into publicly fetchable URLs
// before the message row is persisted, keeping binary storage out of the
// message table.
package attach

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"moodchat/internal/blob"
	"moodchat/internal/chaterr"
	"moodchat/internal/message"
)

const DefaultTimeout = 15 * time.Second

// Uploader writes image attachments through an ObjectStorage. Uploads are
// create-only and never retried; a failed upload is reported once and the
// draft stays staged for a user-initiated resend.
type Uploader struct {
	storage blob.ObjectStorage
	timeout time.Duration
	now     func() time.Time
}

func NewUploader(storage blob.ObjectStorage, timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Uploader{storage: storage, timeout: timeout, now: time.Now}
}

// Upload stores the staged attachment and returns its public URL. A
// non-image attachment is a caller error, not a retryable failure.
func (u *Uploader) Upload(ctx context.Context, att *message.Attachment) (string, error) {
	if att == nil || len(att.Data) == 0 {
		return "", chaterr.InvalidArg("no attachment staged")
	}
	contentType := att.Mime
	if contentType == "" {
		contentType = http.DetectContentType(att.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", chaterr.InvalidArg(fmt.Sprintf("attachment must be an image, got %s", contentType))
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	key := u.objectKey(att.Name)
	info, err := u.storage.Put(ctx, key, att.Name, contentType, bytes.NewReader(att.Data))
	if err != nil {
		return "", chaterr.Wrap(chaterr.CodeUpload, "upload attachment", err)
	}
	return u.storage.PublicURL(info.Key), nil
}

// objectKey derives a unique create-only key from the upload timestamp and
// the sanitized original filename.
func (u *Uploader) objectKey(name string) string {
	return fmt.Sprintf("%d-%s", u.now().UnixNano(), sanitizeName(name))
}

func sanitizeName(name string) string {
	cleaned := filepath.Base(name)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, string(filepath.Separator), "-")
	cleaned = strings.ReplaceAll(cleaned, "..", "")
	if cleaned == "" || cleaned == "." {
		return "image"
	}
	return cleaned
}
