package doc

type ChangeKind string

const (
	// ChangeSplice replaces Deleted units at At with Inserted units.
	ChangeSplice ChangeKind = "splice"
	// ChangeSplit moves the content of BlockID from At onwards to the start
	// of TargetID.
	ChangeSplit ChangeKind = "split"
	// ChangeMerge appends the whole content of BlockID to TargetID at
	// TargetAt. BlockID no longer exists afterwards.
	ChangeMerge ChangeKind = "merge"
	// ChangeRemoved deletes BlockID with its content. Anchors inside it
	// collapse onto TargetID at TargetAt.
	ChangeRemoved ChangeKind = "removed"
)

// BlockChange is one step of a Diff. Changes are ordered: each one is
// expressed against the state left by the previous ones.
type BlockChange struct {
	Kind     ChangeKind `json:"kind"`
	BlockID  string     `json:"blockId"`
	At       int        `json:"at,omitempty"`
	Deleted  int        `json:"deleted,omitempty"`
	Inserted int        `json:"inserted,omitempty"`
	TargetID string     `json:"targetId,omitempty"`
	TargetAt int        `json:"targetAt,omitempty"`
}

// Diff describes how inline offsets of textblocks moved during one edit.
// Purely structural edits that keep every textblock and its text produce an
// empty Diff.
type Diff struct {
	Changes []BlockChange `json:"changes"`
}

func (d Diff) Empty() bool {
	return len(d.Changes) == 0
}

func (d *Diff) Append(changes ...BlockChange) {
	for _, c := range changes {
		if c.Kind == ChangeSplice && c.Deleted == 0 && c.Inserted == 0 {
			continue
		}
		d.Changes = append(d.Changes, c)
	}
}

func (d Diff) Concat(o Diff) Diff {
	out := Diff{Changes: make([]BlockChange, 0, len(d.Changes)+len(o.Changes))}
	out.Changes = append(out.Changes, d.Changes...)
	out.Changes = append(out.Changes, o.Changes...)
	return out
}

func Splice(blockID string, at, deleted, inserted int) BlockChange {
	return BlockChange{Kind: ChangeSplice, BlockID: blockID, At: at, Deleted: deleted, Inserted: inserted}
}

func Split(blockID string, at int, targetID string) BlockChange {
	return BlockChange{Kind: ChangeSplit, BlockID: blockID, At: at, TargetID: targetID}
}

func Merge(blockID, targetID string, targetAt int) BlockChange {
	return BlockChange{Kind: ChangeMerge, BlockID: blockID, TargetID: targetID, TargetAt: targetAt}
}

func Removed(blockID, targetID string, targetAt int) BlockChange {
	return BlockChange{Kind: ChangeRemoved, BlockID: blockID, TargetID: targetID, TargetAt: targetAt}
}
