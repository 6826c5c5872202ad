package tracking

// Location identifies which tracking board list a patient appeared in.
type Location string

const (
	WaitingRoom Location = "waiting_room"
	Roomed      Location = "roomed"
)

// Observation is one visible patient row from a single polling cycle.
// Name is the row key, formatted "LAST, FIRST". Age 0 means unknown.
type Observation struct {
	Name       string
	Status     string
	Age        int
	Notes      string
	Location   Location
	Room       string
	TimeInRoom string
}

// Snapshot maps patient name to the row observed for one location in one cycle.
type Snapshot map[string]Observation

// CycleSnapshot holds both location snapshots for a single polling cycle.
type CycleSnapshot struct {
	WaitingRoom Snapshot
	Roomed      Snapshot
}

// SnapshotFromRows builds a Snapshot from an ordered row list. Later duplicate
// names overwrite earlier ones, matching how the board renders a patient once.
func SnapshotFromRows(rows []Observation) Snapshot {
	snap := make(Snapshot, len(rows))
	for _, row := range rows {
		snap[row.Name] = row
	}
	return snap
}
