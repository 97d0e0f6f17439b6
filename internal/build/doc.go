// Package build defines the six asset pipelines and the named tasks that
// run them.
//
// A Service is constructed once per process from the loaded configuration
// and the build mode. Each pipeline constructor reads both; nothing
// observes the process environment after startup. Tasks are registered on
// a pipeline.Graph so that build:img runs after build:sprite and the
// aggregate build task waits for every pipeline.
package build
