package remote

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob/memblob"
)

func TestBlobStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBlobStore(ctx, "mem://", "snapshots/")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Put(ctx, "kb.index", []byte("blob")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "kb.index")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("blob")) {
		t.Errorf("Get=%q", got)
	}
}

func TestBlobStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBlobStore(ctx, "mem://", "")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.Get(ctx, "missing.metadata")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err=%v, want ErrNotFound", err)
	}
}

func TestBlobStore_Prefix(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	store := NewBlobStore(bucket, "mem://", "team-a/")

	if err := store.Put(ctx, "kb.metadata", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	ok, err := bucket.Exists(ctx, "team-a/kb.metadata")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("object should be stored under the prefix")
	}
	_ = store.Close()
}

func TestBlobStore_FileBucket(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := OpenBlobStore(ctx, "file://"+filepath.ToSlash(dir), "remote/")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Put(ctx, "kb.index", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "remote", "kb.index")); err != nil {
		t.Errorf("expected object on disk: %v", err)
	}
}

func TestOpenBlobStore_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenBlobStore(ctx, "", ""); err == nil {
		t.Error("empty url should fail")
	}
	if _, err := OpenBlobStore(ctx, "nosuchscheme://bucket", ""); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err=%v, want ErrUnavailable", err)
	}
}
