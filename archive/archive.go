// Package archive persists built BVHs to zip files. Each tree is stored as a
// gob encoded entry compressed with a selectable codec.
package archive

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/achilleasa/polaris-bvh/bvh"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/klauspost/compress/zip"
	"github.com/olekukonko/tablewriter"
)

const (
	formatVersion = 1

	manifestFile = "manifest.bin"
	topTreeFile  = "top.bin"
	meshTreeFmt  = "meshes/%04d.bin"
)

type manifest struct {
	Version int
	Meshes  []string
}

// An Archive is a scene BVH loaded from a zip file.
type Archive struct {
	Codec Codec
	Scene *bvh.SceneBVH
}

var logger = log.New("archive")

// Write the scene BVH to w as a zip archive.
func Write(w io.Writer, sb *bvh.SceneBVH, codec Codec) error {
	method, err := codec.method()
	if err != nil {
		return err
	}
	if sb == nil || sb.Top == nil {
		return fmt.Errorf("archive: no top-level tree to write")
	}

	zw := zip.NewWriter(w)
	registerCompressors(zw)

	m := manifest{
		Version: formatVersion,
		Meshes:  make([]string, len(sb.Meshes)),
	}
	for index, mt := range sb.Meshes {
		m.Meshes[index] = mt.Mesh
	}

	if err = writeEntry(zw, manifestFile, zip.Store, &m); err != nil {
		return err
	}
	if err = writeEntry(zw, topTreeFile, method, sb.Top); err != nil {
		return err
	}
	for index, mt := range sb.Meshes {
		if err = writeEntry(zw, fmt.Sprintf(meshTreeFmt, index), method, mt.Tree); err != nil {
			return err
		}
	}

	return zw.Close()
}

// Write the scene BVH to a file.
func WriteFile(path string, sb *bvh.SceneBVH, codec Codec) error {
	logger.Infof("writing %s compressed BVH to %s", codec, path)
	start := time.Now()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = Write(f, sb, codec)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	logger.Noticef("wrote BVH to %s in %d ms", path, time.Since(start).Nanoseconds()/1e6)
	return nil
}

func writeEntry(zw *zip.Writer, name string, method uint16, data interface{}) error {
	cw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(cw).Encode(data); err != nil {
		return fmt.Errorf("archive: failed to encode %s: %w", name, err)
	}
	return nil
}

// Read an archive from r.
func Read(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, invalidArchive("%s", err.Error())
	}
	registerDecompressors(zr)

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	var m manifest
	if err = readEntry(entries, manifestFile, &m); err != nil {
		return nil, err
	}
	if m.Version != formatVersion {
		return nil, invalidArchive("unsupported version %d", m.Version)
	}

	topEntry := entries[topTreeFile]
	if topEntry == nil {
		return nil, invalidArchive("missing %s", topTreeFile)
	}
	codec, err := codecForMethod(topEntry.Method)
	if err != nil {
		return nil, err
	}

	out := &Archive{
		Codec: codec,
		Scene: &bvh.SceneBVH{
			Top:    &bvh.Tree{},
			Meshes: make([]bvh.MeshTree, len(m.Meshes)),
		},
	}
	if err = readEntry(entries, topTreeFile, out.Scene.Top); err != nil {
		return nil, err
	}
	for index, name := range m.Meshes {
		tree := &bvh.Tree{}
		if err = readEntry(entries, fmt.Sprintf(meshTreeFmt, index), tree); err != nil {
			return nil, err
		}
		out.Scene.Meshes[index] = bvh.MeshTree{Mesh: name, Tree: tree}
	}
	return out, nil
}

// Read an archive from a file.
func ReadFile(path string) (*Archive, error) {
	logger.Infof("reading BVH from %s", path)
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Noticef("read %s compressed BVH from %s in %d ms", a.Codec, path, time.Since(start).Nanoseconds()/1e6)
	return a, nil
}

func readEntry(entries map[string]*zip.File, name string, target interface{}) error {
	f := entries[name]
	if f == nil {
		return invalidArchive("missing %s", name)
	}
	if _, err := codecForMethod(f.Method); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return invalidArchive("failed to open %s: %s", name, err.Error())
	}
	defer rc.Close()

	if err = gob.NewDecoder(rc).Decode(target); err != nil {
		return invalidArchive("failed to decode %s: %s", name, err.Error())
	}
	return nil
}

// Render a table summarizing the trees in the archive.
func (a *Archive) Info() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Tree", "Inner nodes", "Leaf nodes", "Max depth", "Primitives", "Duplicates", "SAH cost"})

	totalPrims := 0
	appendRow := func(name string, tree *bvh.Tree) {
		stats := tree.Stats()
		totalPrims += stats.Prims
		table.Append([]string{
			name,
			fmt.Sprint(stats.InnerNodes),
			fmt.Sprint(stats.LeafNodes),
			fmt.Sprint(stats.MaxDepth),
			fmt.Sprint(stats.Prims),
			fmt.Sprintf("%.1f%%", tree.DuplicateFraction()*100),
			fmt.Sprintf("%.2f", stats.SAHCost),
		})
	}

	appendRow("top-level", a.Scene.Top)
	for _, mt := range a.Scene.Meshes {
		appendRow(mt.Mesh, mt.Tree)
	}
	table.SetFooter([]string{"codec: " + string(a.Codec), "", "", "", fmt.Sprint(totalPrims), "", ""})
	table.Render()
	return buf.String()
}
