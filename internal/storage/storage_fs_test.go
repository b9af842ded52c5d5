package storage

import (
	"bytes"
	"io"
	"os"
	"path"
	"testing"

	"github.com/ije/gox/crypto/rand"
)

func TestFSStorage(t *testing.T) {
	root := path.Join(os.TempDir(), "storage_test_"+rand.Hex.String(8))
	fs, err := NewFSStorage(root)
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)

	err = fs.Put("test.txt", bytes.NewBufferString("Hello World!"))
	if err != nil {
		t.Fatal(err)
	}

	err = fs.Put("deno.land/std@0.109.0/fmt/colors.ts", bytes.NewBufferString("Hello World!"))
	if err != nil {
		t.Fatal(err)
	}

	fi, err := fs.Stat("test.txt")
	if err != nil {
		t.Fatal(err)
	}

	if fi.Size() != 12 {
		t.Fatalf("invalid file size(%d), shoud be 12", fi.Size())
	}

	f, fi, err := fs.Get("deno.land/std@0.109.0/fmt/colors.ts")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if fi.Size() != 12 {
		t.Fatalf("invalid file size(%d), shoud be 12", fi.Size())
	}

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != "Hello World!" {
		t.Fatalf("invalid file content('%s'), shoud be 'Hello World!'", string(data))
	}

	err = fs.Delete("test.txt")
	if err != nil {
		t.Fatal(err)
	}

	_, err = fs.Stat("test.txt")
	if err != ErrNotFound {
		t.Fatalf("File should not exist: %v", err)
	}

	if err = fs.Delete("test.txt"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, _, err = fs.Get("../escape.txt"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for a path outside the root, got %v", err)
	}
}

func TestLayeredStorage(t *testing.T) {
	root := path.Join(os.TempDir(), "storage_test_"+rand.Hex.String(8))
	defer os.RemoveAll(root)

	front, err := NewFSStorage(path.Join(root, "front"))
	if err != nil {
		t.Fatal(err)
	}
	back, err := NewFSStorage(path.Join(root, "back"))
	if err != nil {
		t.Fatal(err)
	}
	layered := NewLayeredStorage(front, back)

	err = back.Put("only-back.txt", bytes.NewBufferString("from back"))
	if err != nil {
		t.Fatal(err)
	}

	r, _, err := layered.Get("only-back.txt")
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "from back" {
		t.Fatalf("unexpected content %q", data)
	}

	// the pipe is closed after the front storage has been written
	if _, err = front.Stat("only-back.txt"); err != nil {
		t.Fatalf("expected the front storage to be filled: %v", err)
	}

	err = layered.Put("both.txt", bytes.NewBufferString("both"))
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []Storage{front, back} {
		if _, err := s.Stat("both.txt"); err != nil {
			t.Fatal(err)
		}
	}

	if err = layered.Delete("both.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err = layered.Stat("both.txt"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
