package vmutil

// Label is a symbolic position in a program under construction. It
// starts unbound; Bind associates it with the builder's current
// position. A label may be referenced by Jmp or FarJmp before or
// after it is bound.
//
// Unlike a design that threads unresolved jumps through mutable
// buffer slices a label holds pointers into, a Label here is just an
// integer id. The builder is the only thing that owns mutable state:
// an arena of emitted words, plus a side table from label id to the
// list of patch sites awaiting that label's address. Binding a label
// walks its list and overwrites the words at those offsets; there are
// no ownership cycles to manage.
type Label int

type patchKind int

const (
	patchNear patchKind = iota // single-word beq-relative jump
	patchFar                   // three-word lui;addi;jalr absolute jump
)

// patchSite records one place in the word arena that refers to a
// label not yet bound when the reference was emitted.
type patchSite struct {
	kind patchKind
	pos  int // index into Builder.words of the first word of the site
	reg  int // destination register, meaningful only for patchFar
}
