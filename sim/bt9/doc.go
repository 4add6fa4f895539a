// Package bt9 reads BT9 branch traces, the text interchange format used to
// drive branch-predictor simulations.
//
// A trace has four sections read in one pass:
//
//	BT9_SPA_TRACE_FORMAT
//	<key>: <value>                                   header
//	BT9_NODES
//	NODE <id> <vaddr> <paddr|-> <opcode> <size> ...  static branch sites
//	BT9_EDGES
//	EDGE <id> <src> <dest> <T|N> <vtarget> <ptarget|-> <inst_cnt> ...
//	BT9_EDGE_SEQUENCE
//	<edge id>                                        dynamic trace, one per line
//	EOF
//
// The header and both tables are materialized by Open. The edge sequence can
// hold billions of entries and is streamed through a fixed-size window, so
// it can only be walked forward, once, with an Iterator or BranchInstances.
//
// Errors during Open wrap ErrFormat or ErrIO and, for parse failures, are a
// *ParseError carrying the line number.
package bt9
