package offline

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

const tempPrefix = "tmp-"

// TempIDs issues client-side identifiers for records created while offline.
// Ids are "tmp-<session>-<n>": the session part is random per process and n is
// a monotonic counter, so two ids from one generator never collide.
type TempIDs struct {
	session string
	n       atomic.Uint64
}

func NewTempIDs() *TempIDs {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &TempIDs{session: s[:12]}
}

func (g *TempIDs) Next() string {
	return tempPrefix + g.session + "-" + strconv.FormatUint(g.n.Add(1), 10)
}

// IsTemp reports whether id was issued by a TempIDs generator.
// Backend ids are UUIDs and never carry the prefix.
func IsTemp(id string) bool { return strings.HasPrefix(id, tempPrefix) }
