package archive

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/polaris-bvh/bvh"
	"github.com/achilleasa/polaris-bvh/scene"
	"github.com/achilleasa/polaris-bvh/types"
	"github.com/klauspost/compress/zip"
)

func buildTestScene(t *testing.T) *bvh.SceneBVH {
	t.Helper()

	grid := scene.NewMesh("grid")
	for i := 0; i < 32; i++ {
		p := types.XYZ(float32(i%8), float32(i/8), float32(i%3))
		base := int32(len(grid.Vertices))
		grid.Vertices = append(grid.Vertices, p, p.Add(types.XYZ(0.5, 0, 0)), p.Add(types.XYZ(0, 0.5, 0.5)))
		grid.Triangles = append(grid.Triangles, [3]int32{base, base + 1, base + 2})
	}

	sc := scene.NewScene()
	if err := sc.AddMesh(grid); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		ob := scene.NewObject("grid", grid)
		ob.Transform = types.Translate4(types.XYZ(0, 0, float32(i)*20))
		if err := sc.AddObject(ob); err != nil {
			t.Fatal(err)
		}
	}

	params := bvh.DefaultParams()
	params.UseSpatialSplit = true
	sb, err := bvh.BuildScene(sc, params, nil)
	if err != nil {
		t.Fatal(err)
	}
	return sb
}

func TestRoundTrip(t *testing.T) {
	sb := buildTestScene(t)

	for _, codec := range []Codec{Deflate, Zstd, Snappy, Store} {
		var buf bytes.Buffer
		if err := Write(&buf, sb, codec); err != nil {
			t.Fatalf("[%s] write failed: %v", codec, err)
		}

		a, err := Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatalf("[%s] read failed: %v", codec, err)
		}

		if a.Codec != codec {
			t.Fatalf("expected detected codec to be %s; got %s", codec, a.Codec)
		}
		if !reflect.DeepEqual(a.Scene.Top, sb.Top) {
			t.Fatalf("[%s] top-level tree does not match the written tree", codec)
		}
		if len(a.Scene.Meshes) != 1 || a.Scene.Meshes[0].Mesh != "grid" {
			t.Fatalf("[%s] expected archive to contain the grid mesh tree; got %d mesh trees", codec, len(a.Scene.Meshes))
		}
		if !reflect.DeepEqual(a.Scene.MeshTree("grid"), sb.MeshTree("grid")) {
			t.Fatalf("[%s] mesh tree does not match the written tree", codec)
		}
	}
}

func TestParseCodec(t *testing.T) {
	type spec struct {
		in       string
		expCodec Codec
		expError bool
	}
	specs := []spec{
		{"", Deflate, false},
		{"DEFLATE", Deflate, false},
		{" zstd", Zstd, false},
		{"snappy", Snappy, false},
		{"store", Store, false},
		{"lz4", "", true},
	}

	for idx, s := range specs {
		codec, err := ParseCodec(s.in)
		if s.expError {
			if !errors.Is(err, ErrUnsupportedCodec) {
				t.Fatalf("[spec %d] expected ErrUnsupportedCodec; got %v", idx, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] unexpected error %v", idx, err)
		}
		if codec != s.expCodec {
			t.Fatalf("[spec %d] expected codec %s; got %s", idx, s.expCodec, codec)
		}
	}
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, buildTestScene(t), Codec("lz4"))
	if !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected ErrUnsupportedCodec; got %v", err)
	}

	if err = Write(&buf, &bvh.SceneBVH{}, Deflate); err == nil {
		t.Fatal("expected an error when writing a scene without a top-level tree")
	}
}

func TestInvalidArchives(t *testing.T) {
	garbage := []byte("not a zip file")
	if _, err := Read(bytes.NewReader(garbage), int64(len(garbage))); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive for garbage input; got %v", err)
	}

	// A zip file without a manifest
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("hello"))
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}
	_, err = Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if !errors.Is(err, ErrInvalidArchive) || !strings.Contains(err.Error(), manifestFile) {
		t.Fatalf("expected ErrInvalidArchive mentioning the missing manifest; got %v", err)
	}

	// A manifest referencing a missing mesh tree
	buf.Reset()
	zw = zip.NewWriter(&buf)
	if err = writeEntry(zw, manifestFile, zip.Store, &manifest{Version: formatVersion, Meshes: []string{"ghost"}}); err != nil {
		t.Fatal(err)
	}
	if err = writeEntry(zw, topTreeFile, zip.Deflate, &bvh.Tree{Root: bvh.NoNode}); err != nil {
		t.Fatal(err)
	}
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}
	_, err = Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if !errors.Is(err, ErrInvalidArchive) || !strings.Contains(err.Error(), "meshes/0000.bin") {
		t.Fatalf("expected ErrInvalidArchive mentioning the missing mesh tree; got %v", err)
	}
}

func TestFileRoundTripAndInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.bvh.zip")
	sb := buildTestScene(t)

	if err := WriteFile(path, sb, Zstd); err != nil {
		t.Fatal(err)
	}
	a, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	info := a.Info()
	for _, exp := range []string{"top-level", "grid", "codec: zstd", "SAH cost"} {
		if !strings.Contains(info, exp) {
			t.Fatalf("expected info table to contain %q; got:\n%s", exp, info)
		}
	}

	if _, err = ReadFile(filepath.Join(t.TempDir(), "missing.zip")); err == nil {
		t.Fatal("expected an error when reading a missing file")
	}
}
