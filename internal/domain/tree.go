package domain

// parentIndex maps task id to parent id.
func parentIndex(tasks []Task) map[string]string {
	idx := make(map[string]string, len(tasks))
	for _, t := range tasks {
		idx[t.ID] = t.ParentID
	}
	return idx
}

// IsAncestorOf reports whether ancestorID appears on the parent chain above taskID.
// The walk stops on revisits so corrupt input cannot loop forever.
func IsAncestorOf(tasks []Task, ancestorID, taskID string) bool {
	return isAncestor(parentIndex(tasks), ancestorID, taskID)
}

func isAncestor(parents map[string]string, ancestorID, taskID string) bool {
	if ancestorID == "" {
		return false
	}
	seen := map[string]struct{}{taskID: {}}
	cur := parents[taskID]
	for cur != "" {
		if cur == ancestorID {
			return true
		}
		if _, ok := seen[cur]; ok {
			return false
		}
		seen[cur] = struct{}{}
		cur = parents[cur]
	}
	return false
}

// WouldCycle reports whether giving taskID the parent parentID would create a cycle.
func WouldCycle(tasks []Task, taskID, parentID string) bool {
	if parentID == "" {
		return false
	}
	if parentID == taskID {
		return true
	}
	return IsAncestorOf(tasks, taskID, parentID)
}

// AvailableParents lists the tasks that taskID may be reparented under.
func AvailableParents(tasks []Task, taskID string) []Task {
	parents := parentIndex(tasks)
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == taskID {
			continue
		}
		if taskID != "" && isAncestor(parents, taskID, t.ID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Children returns the direct children of id, in collection order.
func Children(tasks []Task, id string) []Task {
	var out []Task
	for _, t := range tasks {
		if id != "" && t.ParentID == id {
			out = append(out, t)
		}
	}
	return out
}

// Roots returns tasks without a parent or whose parent is missing from tasks.
func Roots(tasks []Task) []Task {
	ids := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = struct{}{}
	}
	var out []Task
	for _, t := range tasks {
		if t.ParentID == "" {
			out = append(out, t)
			continue
		}
		if _, ok := ids[t.ParentID]; !ok {
			out = append(out, t)
		}
	}
	return out
}
