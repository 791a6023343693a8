package pipeline

import "fmt"

// NodeType classifies the data artifact a node represents. The numeric
// codes are part of the persisted format and must not be renumbered.
type NodeType int

const (
	NodeMovie       NodeType = 0  // 2D micrograph movie(s)
	NodeMicrograph  NodeType = 1  // 2D micrograph(s), possibly with CTF information
	NodeTomogram    NodeType = 2  // 3D tomogram(s)
	NodeCoordinates NodeType = 4  // particle coordinates for micrographs
	NodeParticles   NodeType = 5  // metadata table with particles
	NodeMovieData   NodeType = 6  // metadata table with particle movie-frames
	NodeReference   NodeType = 7  // 2D or 3D reference(s)
	NodeMask        NodeType = 8  // 2D or 3D mask(s)
	NodeModel       NodeType = 9  // model table for class selection
	NodeOptimiser   NodeType = 10 // optimiser table for job continuation
	NodeHalfMap     NodeType = 11 // unfiltered half-maps from auto-refine
	NodeFinalMap    NodeType = 12 // sharpened final map (output only)
	NodeResMap      NodeType = 13 // local-resolution map (output only)
)

var nodeTypeNames = map[NodeType]string{
	NodeMovie:       "movie",
	NodeMicrograph:  "micrograph",
	NodeTomogram:    "tomogram",
	NodeCoordinates: "coordinates",
	NodeParticles:   "particles",
	NodeMovieData:   "movie-data",
	NodeReference:   "reference",
	NodeMask:        "mask",
	NodeModel:       "model",
	NodeOptimiser:   "optimiser",
	NodeHalfMap:     "half-map",
	NodeFinalMap:    "final-map",
	NodeResMap:      "resolution-map",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("node-type(%d)", int(t))
}

// Valid reports whether t is one of the known node type codes.
func (t NodeType) Valid() bool {
	_, ok := nodeTypeNames[t]
	return ok
}

// ProcessType classifies the job a process represents. The numeric codes
// are part of the persisted format and also define the browse order in the
// external UI, so they must not be renumbered.
type ProcessType int

const (
	ProcImport       ProcessType = 1  // import external files as nodes
	ProcMotionCorr   ProcessType = 2  // motion correction of movies
	ProcCTFFind      ProcessType = 3  // CTF estimation from micrographs
	ProcManualPick   ProcessType = 4  // manual particle picking
	ProcAutoPick     ProcessType = 5  // automated particle picking
	ProcSort         ProcessType = 6  // sort particles by score
	ProcExtract      ProcessType = 7  // window and normalize particles
	ProcClass2D      ProcessType = 8  // 2D classification
	ProcClass3D      ProcessType = 9  // 3D classification
	ProcClassSelect  ProcessType = 10 // interactive class selection
	ProcAutoRefine3D ProcessType = 11 // 3D auto-refine
	ProcPolish       ProcessType = 12 // particle polishing
	ProcPostProcess  ProcessType = 13 // post-processing of half-maps
	ProcResMap       ProcessType = 14 // local resolution estimation
	ProcPublish      ProcessType = 15 // publish final results
)

var processTypeNames = map[ProcessType]string{
	ProcImport:       "import",
	ProcMotionCorr:   "motioncorr",
	ProcCTFFind:      "ctffind",
	ProcManualPick:   "manualpick",
	ProcAutoPick:     "autopick",
	ProcSort:         "sort",
	ProcExtract:      "extract",
	ProcClass2D:      "class2d",
	ProcClass3D:      "class3d",
	ProcClassSelect:  "select",
	ProcAutoRefine3D: "refine3d",
	ProcPolish:       "polish",
	ProcPostProcess:  "postprocess",
	ProcResMap:       "resmap",
	ProcPublish:      "publish",
}

func (t ProcessType) String() string {
	if s, ok := processTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("process-type(%d)", int(t))
}

// Valid reports whether t is one of the known process type codes.
func (t ProcessType) Valid() bool {
	_, ok := processTypeNames[t]
	return ok
}

// Status is the lifecycle state of a process. Codes are persisted.
type Status int

const (
	StatusRunning   Status = 0
	StatusScheduled Status = 1
	StatusFinished  Status = 2
	StatusCancelled Status = 3
)

var statusNames = map[Status]string{
	StatusRunning:   "running",
	StatusScheduled: "scheduled",
	StatusFinished:  "finished",
	StatusCancelled: "cancelled",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Valid reports whether s is one of the known status codes.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}
