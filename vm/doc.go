// Package vm implements the pvm register machine.
//
// This package contains:
//   - Untagged 64-bit registers and their bit-cast helpers
//   - A bump-allocated heap arena with object and array headers
//   - The append-only klass table describing instance layouts
//   - Frames, the call stack and the dispatch loop
//   - Opcode profiling and state inspection
package vm
