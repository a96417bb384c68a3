package blob

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"moodchat/internal/chaterr"
)

func openTestStorage(t *testing.T) *DiskStorage {
	t.Helper()
	dir := t.TempDir()
	st, err := OpenDiskStorage(filepath.Join(dir, "blobs.db"), filepath.Join(dir, "blobs"), "http://127.0.0.1:8080/attachments")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestDiskPutAndOpenRoundTrip(t *testing.T) {
	st := openTestStorage(t)
	info, err := st.Put(context.Background(), "1700000000-cat.png", "cat.png", "image/png", strings.NewReader("pngbytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("pngbytes")) {
		t.Fatalf("size mismatch: %d", info.Size)
	}
	got, rc, err := st.Open("1700000000-cat.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "pngbytes" || got.ContentType != "image/png" {
		t.Fatalf("round trip lost data: %+v %q", got, data)
	}
}

func TestDiskPutNeverOverwrites(t *testing.T) {
	st := openTestStorage(t)
	if _, err := st.Put(context.Background(), "k.png", "k.png", "image/png", strings.NewReader("first")); err != nil {
		t.Fatalf("first put: %v", err)
	}
	_, err := st.Put(context.Background(), "k.png", "k.png", "image/png", strings.NewReader("second"))
	if err == nil {
		t.Fatalf("second put on same key must fail")
	}
	_, rc, err := st.Open("k.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "first" {
		t.Fatalf("original object was clobbered: %q", data)
	}
}

func TestDiskRejectsPathTraversalKeys(t *testing.T) {
	st := openTestStorage(t)
	_, err := st.Put(context.Background(), "../escape.png", "escape.png", "image/png", strings.NewReader("x"))
	if chaterr.CodeOf(err) != chaterr.CodeInvalidArg {
		t.Fatalf("expected INVALID_ARGUMENT for path-ish key, got %v", err)
	}
}

func TestDiskOpenMissingKey(t *testing.T) {
	st := openTestStorage(t)
	_, _, err := st.Open("nope.png")
	if chaterr.CodeOf(err) != chaterr.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestDiskPublicURLEscapesKey(t *testing.T) {
	st := openTestStorage(t)
	got := st.PublicURL("170-my cat.png")
	want := "http://127.0.0.1:8080/attachments/170-my%20cat.png"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
