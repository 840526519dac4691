// Package migrate drives the procedure migration.
//
// A convert run lists the source procedures and makes sure each one has a
// complete translated artifact on disk, reusing complete artifacts from
// earlier runs and regenerating incomplete ones. An apply run executes every
// uncategorized artifact against the target database, asks the generation
// service to correct failures a bounded number of times, and relocates each
// artifact into the accept, acceptWithGpt or decline partition.
//
// Everything is sequential. State between runs lives only in the artifact
// store, so a run killed at any point can be restarted.
package migrate
