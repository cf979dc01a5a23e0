// Package generate holds the artifact generators and their registry.
//
// A generator is a pure function from an entity record (plus options) to
// output bytes and a deterministic relative output path. The engine never
// inspects what a generator produces; adding a new artifact kind means
// registering a new Generator implementation, with no change to the graph
// builder, planner or applier.
//
// Generators must be deterministic: the same record and options always
// produce the same bytes. The applier relies on this for its
// content-comparing writes.
package generate
