package program

import "fmt"

// AppendToRoot returns a new script with block appended at the top level.
// The input script is not modified.
func AppendToRoot(script Script, block Block) Script {
	out := make(Script, 0, len(script)+1)
	out = append(out, script...)
	return append(out, block)
}

// InsertIntoContainer appends block to the children of the container whose id
// is containerID, searching the whole tree in pre-order. Only the path from the
// root to the container is copied. If no container has that id the original
// script is returned with found=false. repaired reports that the container had
// no child list and was given one.
func InsertIntoContainer(script Script, containerID string, block Block) (out Script, found, repaired bool) {
	out, found, repaired = insertInto(script, containerID, block)
	if !found {
		return script, false, false
	}
	return out, true, repaired
}

func insertInto(blocks []Block, containerID string, block Block) ([]Block, bool, bool) {
	for i := range blocks {
		current := blocks[i]

		if current.ID == containerID && current.Type.IsContainer() {
			repaired := current.Children == nil
			if repaired {
				current.Children = []Block{}
			}
			children := make([]Block, 0, len(current.Children)+1)
			children = append(children, current.Children...)
			current.Children = append(children, block)
			return replaceAt(blocks, i, current), true, repaired
		}

		if len(current.Children) > 0 {
			if children, found, repaired := insertInto(current.Children, containerID, block); found {
				current.Children = children
				return replaceAt(blocks, i, current), true, repaired
			}
		}
	}
	return blocks, false, false
}

func replaceAt(blocks []Block, i int, b Block) []Block {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	out[i] = b
	return out
}

// RemoveByID removes every block whose id is blockID, together with its
// subtree, at any depth. When nothing matches the original script is returned.
func RemoveByID(script Script, blockID string) Script {
	out, changed := removeFrom(script, blockID)
	if !changed {
		return script
	}
	return out
}

func removeFrom(blocks []Block, blockID string) ([]Block, bool) {
	var out []Block
	changed := false

	for i, b := range blocks {
		if b.ID == blockID {
			if !changed {
				out = make([]Block, 0, len(blocks))
				out = append(out, blocks[:i]...)
				changed = true
			}
			continue
		}

		if len(b.Children) > 0 {
			if children, ok := removeFrom(b.Children, blockID); ok {
				b.Children = children
				if !changed {
					out = make([]Block, 0, len(blocks))
					out = append(out, blocks[:i]...)
					changed = true
				}
			}
		}

		if changed {
			out = append(out, b)
		}
	}

	if !changed {
		return blocks, false
	}
	return out, true
}

// Find returns the first block with the given id in pre-order.
func Find(script Script, blockID string) (Block, bool) {
	return FindFirst(script, func(b Block) bool { return b.ID == blockID })
}

// FindFirst returns the first block in pre-order that matches pred.
func FindFirst(script Script, pred func(Block) bool) (Block, bool) {
	for _, b := range script {
		if pred(b) {
			return b, true
		}
		if len(b.Children) > 0 {
			if found, ok := FindFirst(b.Children, pred); ok {
				return found, true
			}
		}
	}
	return Block{}, false
}

// NegateFirstMove returns a script in which the first move-steps block
// (pre-order, containers included) has its step value negated.
// ok is false and the original script is returned when there is no move block.
func NegateFirstMove(script Script) (Script, bool) {
	out, ok := negateFirstMove(script)
	if !ok {
		return script, false
	}
	return out, true
}

func negateFirstMove(blocks []Block) ([]Block, bool) {
	for i, b := range blocks {
		if b.Type == MotionMoveSteps {
			values := append([]interface{}{}, b.Values...)
			if len(values) == 0 {
				values = append(values, 0.0)
			}
			values[0] = -b.Number(0)
			b.Values = values
			return replaceAt(blocks, i, b), true
		}
		if len(b.Children) > 0 {
			if children, ok := negateFirstMove(b.Children); ok {
				b.Children = children
				return replaceAt(blocks, i, b), true
			}
		}
	}
	return blocks, false
}

// IDs returns every block id in pre-order.
func IDs(script Script) []string {
	var ids []string
	var walk func([]Block)
	walk = func(blocks []Block) {
		for _, b := range blocks {
			ids = append(ids, b.ID)
			walk(b.Children)
		}
	}
	walk(script)
	return ids
}

// Validate checks the structural invariants of a script: non-empty unique ids
// and child lists present exactly on container types.
func Validate(script Script) error {
	seen := make(map[string]bool)
	var check func([]Block) error
	check = func(blocks []Block) error {
		for _, b := range blocks {
			if b.ID == "" {
				return fmt.Errorf("block of type %s has no id", b.Type)
			}
			if seen[b.ID] {
				return fmt.Errorf("duplicate block id: %s", b.ID)
			}
			seen[b.ID] = true

			if b.Type.IsContainer() && b.Children == nil {
				return fmt.Errorf("container block %s has no children", b.ID)
			}
			if !b.Type.IsContainer() && b.Children != nil {
				return fmt.Errorf("block %s of type %s cannot have children", b.ID, b.Type)
			}
			if err := check(b.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return check(script)
}
