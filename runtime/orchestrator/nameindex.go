package orchestrator

import "strconv"

// nameIndex renders generation-indexed model names: a base prefix plus a
// monotonically increasing counter. Each round of the pipelined algorithm
// targets a fresh generation so no two in-flight rounds ever alias a slot.
type nameIndex struct {
	prefix string
	i      int
}

func newNameIndex(prefix string) nameIndex {
	return nameIndex{prefix: prefix}
}

func (n nameIndex) String() string {
	return n.prefix + strconv.Itoa(n.i)
}

func (n nameIndex) offset(delta int) nameIndex {
	return nameIndex{prefix: n.prefix, i: n.i + delta}
}

func (n *nameIndex) inc() {
	n.i++
}
