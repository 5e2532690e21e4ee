package app

import (
	"github.com/quazardous/qdadm-go/modules/audit"
	"github.com/quazardous/qdadm-go/modules/dashboard"
	"github.com/quazardous/qdadm-go/modules/notes"
)

// coreModules is the definitive set of modules compiled into the qdadm
// binary. Modules carry state, so every App gets fresh instances.
func coreModules() []any {
	return []any{
		notes.New(),
		audit.NewTrail().Spec(),
		dashboard.Connect,
	}
}
