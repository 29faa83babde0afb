package renderer

// FrameState tracks a frame slot through one pass of the loop. A slot in
// FrameSubmitted goes back to FrameIdle once its fence has been waited on.
type FrameState uint8

const (
	FrameIdle FrameState = iota
	FrameAcquired
	FrameRecorded
	FrameSubmitted
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "IDLE"
	case FrameAcquired:
		return "ACQUIRED"
	case FrameRecorded:
		return "RECORDED"
	case FrameSubmitted:
		return "SUBMITTED"
	}
	return "UNKNOWN"
}

type frameSlot struct {
	state      FrameState
	imageIndex uint32
}
