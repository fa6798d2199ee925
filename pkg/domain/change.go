package domain

// ChangeKind enumerates the structural edits a rule evaluator is asked about.
type ChangeKind string

const (
	ChangeAddNode      ChangeKind = "add_node"
	ChangeDeleteNode   ChangeKind = "delete_node"
	ChangeConnect      ChangeKind = "connect"
	ChangeDisconnect   ChangeKind = "disconnect"
	ChangeDock         ChangeKind = "dock"
	ChangeUnDock       ChangeKind = "undock"
	ChangeSetParent    ChangeKind = "set_parent"
	ChangeRemoveParent ChangeKind = "remove_parent"
)

// Change describes a proposed edit. SourceID and TargetID always follow the
// direction of the edge involved: candidate -> parent for docking,
// parent -> child for containment, source -> target for connections.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	EdgeKind EdgeKind   `json:"edge_kind,omitempty"`
	EdgeID   string     `json:"edge_id,omitempty"`
	SourceID string     `json:"source,omitempty"`
	TargetID string     `json:"target,omitempty"`

	// NodeID and Labels describe the node for add/delete changes.
	NodeID string   `json:"node_id,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// DockChange describes docking candidate under parent.
func DockChange(parentID, candidateID string) Change {
	return Change{Kind: ChangeDock, EdgeKind: KindDock, SourceID: candidateID, TargetID: parentID}
}

// UnDockChange describes removing the dock relation between candidate and parent.
func UnDockChange(parentID, candidateID string) Change {
	return Change{Kind: ChangeUnDock, EdgeKind: KindDock, SourceID: candidateID, TargetID: parentID}
}

// SetParentChange describes making child a child of parent.
func SetParentChange(parentID, childID string) Change {
	return Change{Kind: ChangeSetParent, EdgeKind: KindChild, SourceID: parentID, TargetID: childID}
}

// RemoveParentChange describes detaching child from parent.
func RemoveParentChange(parentID, childID string) Change {
	return Change{Kind: ChangeRemoveParent, EdgeKind: KindChild, SourceID: parentID, TargetID: childID}
}

// ParentID returns the parent end of a dock or containment change.
func (c Change) ParentID() string {
	if c.EdgeKind == KindDock {
		return c.TargetID
	}
	return c.SourceID
}

// ChildID returns the docked candidate or contained child of a relationship change.
func (c Change) ChildID() string {
	if c.EdgeKind == KindDock {
		return c.SourceID
	}
	return c.TargetID
}
