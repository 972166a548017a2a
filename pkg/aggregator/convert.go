package aggregator

import "github.com/grovetools/sessionlink/pkg/protocol"

// Convert normalizes ev into a ChangeRecord, keeping at most maxPaths added
// and removed node paths. Events of unknown kind yield a record without a
// kind; Filter drops them before conversion.
func Convert(ev Event, maxPaths int) protocol.ChangeRecord {
	rec := protocol.ChangeRecord{TargetPath: ev.Target.Path}

	switch ev.Kind {
	case ChildList:
		if len(ev.Added) > 0 {
			rec.Kind = protocol.ChangeAdded
		} else {
			rec.Kind = protocol.ChangeRemoved
		}
		rec.AddedNodes = nodePaths(ev.Added, maxPaths)
		rec.RemovedNodes = nodePaths(ev.Removed, maxPaths)
	case Attributes:
		rec.Kind = protocol.ChangeAttribute
		rec.AttributeName = ev.AttributeName
		rec.OldValue = ev.OldValue
		rec.NewValue = ev.NewValue
	case CharacterData:
		rec.Kind = protocol.ChangeText
		rec.OldValue = ev.OldValue
		rec.NewValue = ev.NewValue
	}
	return rec
}

func nodePaths(nodes []Node, max int) []string {
	if len(nodes) == 0 {
		return nil
	}
	if max > 0 && len(nodes) > max {
		nodes = nodes[:max]
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path
	}
	return out
}

// coalesce merges runs of consecutive attribute changes on the same
// (target, attribute) and text changes on the same target into one record
// holding the first old value and the last new value. Structural records are
// never merged.
func coalesce(records []protocol.ChangeRecord) []protocol.ChangeRecord {
	if len(records) <= 1 {
		return records
	}

	out := make([]protocol.ChangeRecord, 0, len(records))
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if rec.Kind != protocol.ChangeAttribute && rec.Kind != protocol.ChangeText {
			out = append(out, rec)
			continue
		}
		firstOld := rec.OldValue
		j := i + 1
		for j < len(records) &&
			records[j].Kind == rec.Kind &&
			records[j].TargetPath == rec.TargetPath &&
			records[j].AttributeName == rec.AttributeName {
			rec = records[j]
			j++
		}
		rec.OldValue = firstOld
		out = append(out, rec)
		i = j - 1
	}
	return out
}
