package editor

import "time"

// DefaultDoubleClick is the longest gap between two activations of the same
// target that still counts as a double activation.
const DefaultDoubleClick = 200 * time.Millisecond

// TargetKind names what an activation landed on.
type TargetKind string

const (
	TargetNode    TargetKind = "node"
	TargetEdge    TargetKind = "edge"
	TargetActor   TargetKind = "actor"
	TargetProcess TargetKind = "process"
)

// Target is the element an activation landed on.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   int        `json:"id"`
}

// Activation classifies an activation.
type Activation int

const (
	Single Activation = iota + 1
	Double
)

func (a Activation) String() string {
	if a == Double {
		return "double"
	}
	return "single"
}

// ClickDetector turns timestamped activations into single and double ones.
// It is not safe for concurrent use.
type ClickDetector struct {
	threshold time.Duration
	last      Target
	at        time.Time
	armed     bool
}

// NewClickDetector creates a detector. threshold <= 0 uses DefaultDoubleClick.
func NewClickDetector(threshold time.Duration) *ClickDetector {
	if threshold <= 0 {
		threshold = DefaultDoubleClick
	}
	return &ClickDetector{threshold: threshold}
}

// Activate records an activation of target at the given time. The second
// activation of the same target within the threshold is Double and resets
// the detector, so a third one starts over as Single.
func (d *ClickDetector) Activate(target Target, at time.Time) Activation {
	if d.armed && d.last == target {
		if gap := at.Sub(d.at); gap >= 0 && gap <= d.threshold {
			d.armed = false
			return Double
		}
	}
	d.last, d.at, d.armed = target, at, true
	return Single
}

// Reset forgets the pending activation.
func (d *ClickDetector) Reset() {
	d.armed = false
}
