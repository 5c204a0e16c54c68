// Package processor hosts the workers that execute individual processing
// tasks. Every worker consumes tasks from the queue filled by the
// orchestrator and reports completion to the task's round so the
// orchestrator can decide what to do next.
package processor
