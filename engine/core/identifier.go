package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	namesMu sync.Mutex
	names   = map[uuid.UUID]string{}
)

// DebugName returns a unique object label of the form "<prefix>-<short uuid>"
// and records it so it can be looked up when validation layers report handles.
func DebugName(prefix string) string {
	id := uuid.New()
	name := fmt.Sprintf("%s-%s", prefix, id.String()[:8])
	namesMu.Lock()
	names[id] = name
	namesMu.Unlock()
	return name
}

// ReleaseDebugNames forgets every label handed out so far.
func ReleaseDebugNames() {
	namesMu.Lock()
	names = map[uuid.UUID]string{}
	namesMu.Unlock()
}

// DebugNameCount reports how many labels are currently recorded.
func DebugNameCount() int {
	namesMu.Lock()
	defer namesMu.Unlock()
	return len(names)
}
