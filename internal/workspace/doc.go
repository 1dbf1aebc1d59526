// Package workspace owns the on-disk side of a contest workspace: the
// .topcoderrc marker binding it to a challenge, the deterministic file walk
// that selects what gets packaged, and the lifecycle of the temporary
// submission artifact.
//
// Scratch directories used while cloning starter packs are managed here as
// well, so every temporary path tcide creates has one owner that removes it.
package workspace
