// Package pipeline runs ordered transformation steps over a batch of assets.
//
// A Pipeline reads a batch from its Source, applies each Step in order and
// hands the result to its Sink. A Boundary turns step failures into
// notifications so a watch session survives a broken edit. Runner serializes
// the runs of one task and Graph orders named tasks by their dependencies.
package pipeline
