// Package sqltext holds the pure text heuristics shared by translation and
// apply: normalizing generated text and deciding whether a PL/pgSQL body is
// structurally closed.
//
// Nothing here parses SQL. Both functions look at markers only.
package sqltext
