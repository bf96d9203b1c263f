package bvh

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/scene"
)

// Returned when the build is cancelled through its Progress.
var ErrCancelled = errors.New("bvh: build cancelled")

// Minimum interval between progress status updates.
const progressUpdateInterval = 250 * time.Millisecond

// A Visitor is invoked with the finished tree before it is returned to the
// caller.
type Visitor func(tree *Tree)

type taskResult struct {
	task int32
	frag *fragment
}

// Builder constructs a BVH over the primitives of a set of objects. A builder
// instance can only be used for a single build.
type Builder struct {
	logger   log.Logger
	params   Params
	objects  []*scene.Object
	progress Progress
	visitors []Visitor

	refs []Reference

	primType   []PrimType
	primIndex  []int32
	primObject []int32

	progressMutex         sync.Mutex
	progressCount         int
	progressTotal         int
	progressOriginalTotal int
	progressStart         time.Time
	progressLastUpdate    time.Time

	// Spatial split state; only accessed by the single-threaded path.
	spatialMinOverlap float32
	spatialStorage    *spatialStorage
	maxReferences     int
	degradedSplits    int

	pool     *taskPool
	nextTask atomic.Int32
	results  chan taskResult

	nodesAllocated atomic.Int64
	nodesReleased  atomic.Int64
}

// Create a new builder for the given objects. Progress may be nil.
func NewBuilder(objects []*scene.Object, params Params, progress Progress) *Builder {
	if progress == nil {
		progress = nopProgress{}
	}
	b := &Builder{
		logger:   log.New("bvh builder"),
		params:   params.Normalize(),
		objects:  objects,
		progress: progress,
	}
	if b.params.UseRotation {
		b.AddVisitor(RotateVisitor(b.params))
	}
	return b
}

// Register a visitor to run on the finished tree.
func (b *Builder) AddVisitor(visitor Visitor) {
	b.visitors = append(b.visitors, visitor)
}

// Build a BVH over the primitives of a set of objects.
func Build(objects []*scene.Object, params Params, progress Progress) (*Tree, error) {
	return NewBuilder(objects, params, progress).Build()
}

// Collect the object references and build the tree. Returns ErrCancelled if
// the build was cancelled.
func (b *Builder) Build() (*Tree, error) {
	refs, root, err := CollectReferences(b.objects, b.params, b.progress)
	if err != nil {
		return nil, err
	}
	return b.BuildReferences(refs, root)
}

// Build the tree over a prepared reference array. The builder takes ownership
// of refs and reorders it in place.
func (b *Builder) BuildReferences(refs []Reference, root Range) (*Tree, error) {
	start := time.Now()

	b.refs = refs
	b.progressStart = start
	b.progressLastUpdate = start
	b.progressCount = 0
	b.progressTotal = len(refs)
	b.progressOriginalTotal = len(refs)

	var (
		tree *Tree
		err  error
	)
	if b.params.UseSpatialSplit {
		tree, err = b.buildSpatialTree(root)
	} else {
		tree, err = b.buildBinnedTree(root)
	}
	if err != nil {
		b.refs = nil
		return nil, err
	}

	b.progressMutex.Lock()
	b.updateProgress(true)
	b.progressMutex.Unlock()

	for _, visitor := range b.visitors {
		visitor(tree)
	}

	if b.degradedSplits > 0 {
		b.logger.Warningf("%d spatial splits fell back to object splits; reference headroom (%d) exhausted", b.degradedSplits, b.maxReferences)
	}
	b.logger.Noticef(
		"built %s BVH with %d references (%d primitives) in %d ms",
		b.params.Type, tree.NumReferences, tree.NumPrims(), time.Since(start).Nanoseconds()/1e6,
	)
	stats := tree.Stats()
	b.logger.Infof(
		"BVH nodes: %d, leaves: %d, max depth: %d, duplicates: %.1f%%",
		stats.InnerNodes+stats.LeafNodes, stats.LeafNodes, stats.MaxDepth, tree.DuplicateFraction()*100,
	)

	b.refs = nil
	return tree, nil
}

func (b *Builder) newTree(numReferences int) *Tree {
	return &Tree{
		Root:          NoNode,
		PrimType:      b.primType,
		PrimIndex:     b.primIndex,
		PrimObject:    b.primObject,
		NumReferences: numReferences,
		SpatialSplit:  b.params.UseSpatialSplit,
		Params:        b.params,
	}
}

// Build using object splits only. Large ranges are built by pool tasks into
// separate fragments that are spliced together once all tasks complete.
func (b *Builder) buildBinnedTree(root Range) (*Tree, error) {
	numRefs := len(b.refs)
	b.primType = make([]PrimType, numRefs)
	b.primIndex = make([]int32, numRefs)
	b.primObject = make([]int32, numRefs)

	workers := b.params.NumThreads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	b.pool = newTaskPool(workers)
	b.results = make(chan taskResult, workers)

	fragments := make(map[int32]*fragment)
	collectorDone := make(chan struct{})
	go func() {
		for res := range b.results {
			fragments[res.task] = res.frag
		}
		close(collectorDone)
	}()

	rootTask := b.nextTask.Add(1) - 1
	b.pool.push(func() { b.runTask(rootTask, root, 0) })
	b.pool.wait()
	close(b.results)
	<-collectorDone

	if b.progress.Cancelled() {
		for _, frag := range fragments {
			b.nodesReleased.Add(int64(len(frag.nodes)))
		}
		b.primType, b.primIndex, b.primObject = nil, nil, nil
		return nil, ErrCancelled
	}

	tree := b.newTree(numRefs)
	tree.Root = splice(tree, fragments, rootTask)
	tree.UpdateVisibility()
	return tree, nil
}

// Build the subtree for r into a new fragment and hand it to the collector.
func (b *Builder) runTask(task int32, r Range, level int) {
	frag := newFragment(&b.nodesAllocated)
	frag.root = b.buildBinned(frag, r, level)
	if r.Size < b.params.ThreadTaskSize {
		b.addProgress(r.Size)
	}
	b.results <- taskResult{task: task, frag: frag}
}

func (b *Builder) buildBinned(frag *fragment, r Range, level int) NodeID {
	if b.progress.Cancelled() {
		return NoNode
	}

	binning := NewObjectBinning(b.refs, r, &b.params)

	// A top-level tree always has an inner root node.
	if !(b.params.TopLevel && level == 0 && r.Size > 0) {
		if b.params.SmallEnoughForLeaf(r.Size, level) ||
			!binning.HasSplit() ||
			(b.withinMaxLeafSize(r) && binning.LeafSAH < binning.SplitSAH) {
			if r.Size >= b.params.ThreadTaskSize {
				b.addProgress(r.Size)
			}
			return b.createLeaf(frag, r, r.Start)
		}
	}

	left, right := binning.Split(b.refs)

	if r.Size < b.params.ThreadTaskSize {
		leftNode, rightNode := NoNode, NoNode
		if left.Size > 0 {
			leftNode = b.buildBinned(frag, left, level+1)
		}
		if right.Size > 0 {
			rightNode = b.buildBinned(frag, right, level+1)
		}
		return frag.inner(leftNode, rightNode)
	}

	inner := frag.asyncInner(r.Bounds)
	for slot, child := range [2]Range{left, right} {
		if child.Size == 0 {
			continue
		}
		child := child
		task := b.nextTask.Add(1) - 1
		frag.pending = append(frag.pending, pendingChild{node: inner, slot: slot, task: task})
		b.logger.Debugf("scheduling task %d for %d references at level %d", task, child.Size, level+1)
		b.pool.push(func() { b.runTask(task, child, level+1) })
	}
	return inner
}

// Copy the fragment of a task and all its pending child fragments into the
// tree in depth-first order and return the new id of the fragment root.
func splice(tree *Tree, fragments map[int32]*fragment, task int32) NodeID {
	frag, ok := fragments[task]
	if !ok {
		panic(fmt.Sprintf("bvh: missing fragment for task %d", task))
	}

	offset := NodeID(len(tree.Nodes))
	for _, node := range frag.nodes {
		for i, child := range node.Children {
			if child != NoNode {
				node.Children[i] = child + offset
			}
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	for _, p := range frag.pending {
		tree.Nodes[offset+p.node].Children[p.slot] = splice(tree, fragments, p.task)
	}

	if frag.root == NoNode {
		return NoNode
	}
	return frag.root + offset
}

// Build using mixed object and spatial splits on the calling goroutine.
func (b *Builder) buildSpatialTree(root Range) (*Tree, error) {
	numRefs := len(b.refs)
	b.spatialMinOverlap = root.Bounds.SafeArea() * b.params.SpatialSplitAlpha
	b.spatialStorage = newSpatialStorage(numRefs)
	b.maxReferences = int(float32(numRefs) * b.params.SpatialHeadroom)
	if cap(b.refs) < b.maxReferences {
		refs := make([]Reference, numRefs, b.maxReferences)
		copy(refs, b.refs)
		b.refs = refs
	}

	reserve := numRefs + numRefs/2
	b.primType = make([]PrimType, 0, reserve)
	b.primIndex = make([]int32, 0, reserve)
	b.primObject = make([]int32, 0, reserve)

	frag := newFragment(&b.nodesAllocated)
	frag.root = b.buildSpatial(frag, root, 0)
	b.spatialStorage = nil

	if b.progress.Cancelled() {
		b.nodesReleased.Add(int64(len(frag.nodes)))
		b.primType, b.primIndex, b.primObject = nil, nil, nil
		return nil, ErrCancelled
	}

	if len(b.primType) != len(b.refs) {
		panic(fmt.Sprintf("bvh: packed %d primitives for %d references", len(b.primType), len(b.refs)))
	}

	tree := b.newTree(numRefs)
	tree.Nodes = frag.nodes
	tree.Root = frag.root
	return tree, nil
}

func (b *Builder) buildSpatial(frag *fragment, r Range, level int) NodeID {
	b.progressMutex.Lock()
	b.updateProgress(false)
	b.progressMutex.Unlock()
	if b.progress.Cancelled() {
		return NoNode
	}

	forceSplit := b.params.TopLevel && level == 0 && r.Size > 0
	if !forceSplit && b.params.SmallEnoughForLeaf(r.Size, level) {
		b.progressCount += r.Size
		return b.createLeaf(frag, r, b.reserveSlots(r.Size))
	}

	split := b.newMixedSplit(r, level)
	if !forceSplit && split.noSplit {
		b.progressCount += r.Size
		return b.createLeaf(frag, r, b.reserveSlots(r.Size))
	}
	if split.degraded {
		b.degradedSplits++
	}

	left, right := split.split(b, r)
	b.progressTotal += left.Size + right.Size - r.Size
	totalBefore := b.progressTotal

	leftNode, rightNode := NoNode, NoNode
	if left.Size > 0 {
		leftNode = b.buildSpatial(frag, left, level+1)
	}

	// Duplicates inserted while building the left subtree shift the right
	// range.
	right.Start += b.progressTotal - totalBefore
	if right.Size > 0 {
		rightNode = b.buildSpatial(frag, right, level+1)
	}
	return frag.inner(leftNode, rightNode)
}

func (b *Builder) addProgress(count int) {
	b.progressMutex.Lock()
	b.progressCount += count
	b.updateProgress(false)
	b.progressMutex.Unlock()
}

// Report build progress. Must be called with progressMutex held.
func (b *Builder) updateProgress(force bool) {
	now := time.Now()
	if !force && now.Sub(b.progressLastUpdate) < progressUpdateInterval {
		return
	}
	b.progressLastUpdate = now

	done := 100.0
	if b.progressTotal > 0 {
		done = float64(b.progressCount) / float64(b.progressTotal) * 100
	}
	duplicates := float64(duplicateFraction(b.progressTotal, b.progressOriginalTotal)) * 100
	b.progress.SetSubstatus(fmt.Sprintf("Building BVH %.0f%%, duplicates %.0f%%", done, duplicates))
}
