package tracks

import "sync"

// StepKind tags a completed side effect that can be reversed.
type StepKind int

const (
	ArtistInserted StepKind = iota + 1
	AlbumInserted
	TrackInserted
	BlobCommitted
	BackrefWritten
)

func (k StepKind) String() string {
	switch k {
	case ArtistInserted:
		return "artist_inserted"
	case AlbumInserted:
		return "album_inserted"
	case TrackInserted:
		return "track_inserted"
	case BlobCommitted:
		return "blob_committed"
	case BackrefWritten:
		return "backref_written"
	default:
		return "unknown"
	}
}

// Step carries what is needed to reverse one side effect.
type Step struct {
	Kind     StepKind
	ArtistID string
	AlbumID  string
	TrackID  string
	BlobID   string
}

// Journal records the steps completed while handling one request, across
// all of its files, in completion order.
type Journal struct {
	mu    sync.Mutex
	steps []Step
}

// Record appends a completed step.
func (j *Journal) Record(s Step) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps = append(j.steps, s)
}

// Steps returns a copy of the recorded steps, oldest first.
func (j *Journal) Steps() []Step {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Step, len(j.steps))
	copy(out, j.steps)
	return out
}
