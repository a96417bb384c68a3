package remote

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"moodchat/internal/message"
)

// multipartImage encodes the staged attachment as the "image" form field
// the server's upload endpoint expects.
func multipartImage(att *message.Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="`+escapeQuotes(att.Name)+`"`)
	if att.Mime != "" {
		hdr.Set("Content-Type", att.Mime)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(att.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
