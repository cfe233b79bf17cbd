package port

import (
	"context"
	"fmt"

	"github.com/mmr-tortoise/vulx/internal/model"
)

const (
	// maxPort is the highest valid TCP/UDP port number (2^16 - 1).
	maxPort = 65535

	// DefaultProbeLimit is the number of consecutive candidates tried.
	DefaultProbeLimit = 100
)

// Allocator picks a free TCP port, starting from a preferred port and moving
// upward one port at a time.
//
// Exactly one probe is in flight at any moment: Allocate is a blocking call
// that returns either a lease or a definitive error.
type Allocator struct {
	// scanner probes the OS for actual port availability.
	scanner *Scanner

	// limit is the maximum number of candidates probed per allocation.
	limit int
}

// NewAllocator creates an Allocator with the given Scanner. A limit below 1
// falls back to DefaultProbeLimit.
func NewAllocator(scanner *Scanner, limit int) *Allocator {
	if limit < 1 {
		limit = DefaultProbeLimit
	}
	return &Allocator{
		scanner: scanner,
		limit:   limit,
	}
}

// Allocate returns a lease on the first free port in
// [preferred, preferred+limit-1], capped at 65535.
//
// If preferred is free it is returned unchanged. A candidate that cannot be
// bound for any reason, including permission errors on privileged ports,
// counts as taken and probing continues. The context is checked before
// every probe.
//
// All failures are CLIErrors with ExitPortAllocationFailed.
func (a *Allocator) Allocate(ctx context.Context, preferred int) (model.PortLease, error) {
	if preferred < 1 || preferred > maxPort {
		return model.PortLease{}, model.NewCLIError(model.ExitPortAllocationFailed,
			fmt.Sprintf("preferred port %d out of range (1-%d)", preferred, maxPort))
	}

	// Compare against the room left below maxPort so a huge limit cannot
	// overflow the addition.
	end := maxPort
	if a.limit <= maxPort-preferred {
		end = preferred + a.limit - 1
	}

	var lastErr error
	for candidate := preferred; candidate <= end; candidate++ {
		if err := ctx.Err(); err != nil {
			return model.PortLease{}, model.WrapCLIError(model.ExitPortAllocationFailed,
				"port allocation cancelled", err)
		}

		err := a.scanner.Probe(candidate)
		if err == nil {
			return model.PortLease{Port: candidate, Preferred: preferred}, nil
		}
		lastErr = err
	}

	return model.PortLease{}, model.WrapCLIError(model.ExitPortAllocationFailed,
		fmt.Sprintf("no free port found in range %d-%d", preferred, end), lastErr)
}
