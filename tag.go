package relmem

import "fmt"

// TagGet returns b's current tag and whether one is set.
func (b *Block) TagGet() (string, bool) {
	if b == nil || !b.tagSet {
		return "", false
	}
	if b.tagOwned != nil {
		return string(b.tagOwned.payload), true
	}
	return b.tagConst, true
}

// EnsureTag returns b if b has a tag and it is byte-equal to tag,
// otherwise nil. Callers use this as a dynamic "is this the type I
// expect?" check keyed by the tag recorded at allocation time.
func (b *Block) EnsureTag(tag string) *Block {
	if got, ok := b.TagGet(); ok && got == tag {
		return b
	}
	return nil
}

// TagSetConst stores tag as b's borrowed tag: relmem keeps only the
// string value, with no graph edge involved. If b's previous tag was
// owned (allocated by TagSetFmt), that owned tag chunk is released via
// Decref against b before the new tag is installed.
func (b *Block) TagSetConst(tag string) bool {
	if b == nil {
		return false
	}
	b.releaseOwnedTag()
	b.tagConst = tag
	b.tagSet = true
	return true
}

// TagSetFmt formats format/args and stores the result as an owned tag: a
// freshly allocated child Block of b holding the formatted bytes. As
// with TagSetConst, a previously owned tag is released first. Like every
// other child of b, the tag chunk participates fully in the graph: if b
// is later destroyed, the tag chunk's destruction is an ordinary part of
// the cascade's teardown phase, not a special case.
func (b *Block) TagSetFmt(format string, args ...interface{}) bool {
	if b == nil {
		return false
	}
	formatted := fmt.Sprintf(format, args...)
	tagChunk, err := alloc(b, len(formatted), 0, "", false)
	if err != nil {
		return false
	}
	copy(tagChunk.payload, formatted)

	b.releaseOwnedTag()
	b.tagOwned = tagChunk
	b.tagConst = ""
	b.tagSet = true
	return true
}

func (b *Block) releaseOwnedTag() {
	if b.tagOwned == nil {
		return
	}
	owned := b.tagOwned
	b.tagOwned = nil
	Decref(b, owned)
}
