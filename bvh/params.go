package bvh

// The type of BVH being built. The builder treats both types the same way;
// callers use it to pick refit vs rebuild policies on scene updates.
type Type uint8

const (
	Static Type = iota
	Dynamic
)

func (t Type) String() string {
	if t == Dynamic {
		return "dynamic"
	}
	return "static"
}

const (
	// Number of bins per axis used by both the object binning partitioner and
	// the spatial splitter.
	NumSpatialBins = 32

	// Spatial splits are not evaluated below this depth.
	MaxSpatialDepth = 48

	// Ranges with at least this many references are built by pool tasks.
	DefaultThreadTaskSize = 4096

	defaultMaxDepth = 64
)

// Params controls the BVH builder.
type Params struct {
	// Build a top-level tree over object instances.
	TopLevel bool

	// Use the single-threaded spatial split builder. Forced off for
	// top-level trees.
	UseSpatialSplit bool

	// Spatial splits are only evaluated when the overlap of the object split
	// children exceeds SpatialSplitAlpha times the root area.
	SpatialSplitAlpha float32

	// Maximum reference array growth factor for spatial splits. Splits that
	// would exceed it fall back to object splits.
	SpatialHeadroom float32

	// Ranges of at most MinLeafSize references or deeper than MaxDepth
	// always become leaves.
	MinLeafSize int
	MaxDepth    int

	// Maximum number of primitives of each kind in a leaf created by the
	// SAH leaf test.
	MaxTriangleLeafSize       int
	MaxMotionTriangleLeafSize int
	MaxCurveLeafSize          int
	MaxMotionCurveLeafSize    int

	// SAH costs.
	SAHNodeCost      float32
	SAHPrimitiveCost float32

	Type Type

	// Ranges of at least ThreadTaskSize references are built as independent
	// tasks using up to NumThreads workers (0 selects runtime.NumCPU).
	ThreadTaskSize int
	NumThreads     int

	// Run the SAH tree rotation pass after building.
	UseRotation        bool
	RotationDepth      int
	RotationIterations int
}

// Get the default builder params.
func DefaultParams() Params {
	return Params{
		SpatialSplitAlpha:         1e-5,
		SpatialHeadroom:           2.0,
		MinLeafSize:               1,
		MaxDepth:                  defaultMaxDepth,
		MaxTriangleLeafSize:       8,
		MaxMotionTriangleLeafSize: 8,
		MaxCurveLeafSize:          1,
		MaxMotionCurveLeafSize:    4,
		SAHNodeCost:               1.0,
		SAHPrimitiveCost:          1.0,
		Type:                      Static,
		ThreadTaskSize:            DefaultThreadTaskSize,
		RotationDepth:             defaultMaxDepth,
		RotationIterations:        5,
	}
}

// Normalize returns a copy of the params with spatial splits disabled for
// top-level trees and non-positive values replaced by their defaults.
func (p Params) Normalize() Params {
	def := DefaultParams()
	if p.TopLevel {
		p.UseSpatialSplit = false
	}
	if p.SpatialSplitAlpha < 0 {
		p.SpatialSplitAlpha = def.SpatialSplitAlpha
	}
	if p.SpatialHeadroom < 1 {
		p.SpatialHeadroom = 1
	}
	if p.MinLeafSize <= 0 {
		p.MinLeafSize = def.MinLeafSize
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = def.MaxDepth
	}
	if p.MaxTriangleLeafSize <= 0 {
		p.MaxTriangleLeafSize = def.MaxTriangleLeafSize
	}
	if p.MaxMotionTriangleLeafSize <= 0 {
		p.MaxMotionTriangleLeafSize = def.MaxMotionTriangleLeafSize
	}
	if p.MaxCurveLeafSize <= 0 {
		p.MaxCurveLeafSize = def.MaxCurveLeafSize
	}
	if p.MaxMotionCurveLeafSize <= 0 {
		p.MaxMotionCurveLeafSize = def.MaxMotionCurveLeafSize
	}
	if p.SAHNodeCost <= 0 {
		p.SAHNodeCost = def.SAHNodeCost
	}
	if p.SAHPrimitiveCost <= 0 {
		p.SAHPrimitiveCost = def.SAHPrimitiveCost
	}
	if p.ThreadTaskSize <= 0 {
		p.ThreadTaskSize = def.ThreadTaskSize
	}
	if p.RotationDepth <= 0 {
		p.RotationDepth = def.RotationDepth
	}
	if p.RotationIterations <= 0 {
		p.RotationIterations = def.RotationIterations
	}
	return p
}

// Returns true if a range must become a leaf regardless of its SAH cost.
func (p *Params) SmallEnoughForLeaf(size, level int) bool {
	return size <= p.MinLeafSize || level >= p.MaxDepth
}

// Cost of intersecting count primitives.
func (p *Params) PrimitiveCost(count int) float32 {
	return p.SAHPrimitiveCost * float32(count)
}

// Cost of traversing count nodes.
func (p *Params) NodeCost(count int) float32 {
	return p.SAHNodeCost * float32(count)
}
