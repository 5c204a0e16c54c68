// Package round tracks joint completion of the tasks submitted together in
// one scheduling round. A round owns no queue semantics; it is purely the
// rendez-vous the orchestrator waits on before consuming round outputs.
package round
