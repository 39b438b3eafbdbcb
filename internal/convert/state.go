package convert

// State is a phase of a conversion run. Runs only move forward; Assembled
// is entered in combined mode alone.
type State int

// Pipeline states, in order.
const (
	Start State = iota
	FilesDiscovered
	AttachmentsResolved
	Assembled
	Rewritten
	ContentsGenerated
	Written
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case FilesDiscovered:
		return "files_discovered"
	case AttachmentsResolved:
		return "attachments_resolved"
	case Assembled:
		return "assembled"
	case Rewritten:
		return "rewritten"
	case ContentsGenerated:
		return "contents_generated"
	case Written:
		return "written"
	}
	return "unknown"
}
