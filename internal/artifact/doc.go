// Package artifact is the filesystem-backed artifact store.
//
// One file per procedure lives in the working directory as <name>.sql until
// the apply step relocates it into exactly one of three partitions:
//
//	<dir>/accept/         applied as generated
//	<dir>/acceptWithGpt/  applied after correction
//	<dir>/decline/        correction budget exhausted
//
// The store is the only state shared between runs. Writes go through a
// temporary file and a rename so an interrupted run never leaves a partial
// artifact behind.
package artifact
