package vm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/pvm/pkg/bytecode"
)

// CallProfile holds profiling data for one call target.
type CallProfile struct {
	EntryPC         int         // pc of the first callee instruction
	InvocationCount uint64      // Atomic counter for invocations
	IsHot           atomic.Bool // Set once, when the threshold is reached
}

// Profiler counts executed instructions per (kind, op) pair and tracks
// how often each call target is entered. A call target becomes hot once
// its entry count reaches CallHotThreshold.
//
// Counters are updated atomically so that Stats may be read while a run
// is in progress on another goroutine.
type Profiler struct {
	counts [bytecode.NumKinds][bytecode.NumOps]uint64

	callProfiles sync.Map // entry pc -> *CallProfile

	// CallHotThreshold is the entry count at which a call target is hot.
	CallHotThreshold uint64 // Default: 100

	// OnHot is called once per call target when it becomes hot.
	OnHot func(profile *CallProfile)

	steps    uint64
	calls    uint64
	maxDepth uint64
	hotCount uint64
}

// NewProfiler creates a new profiler with default thresholds.
func NewProfiler() *Profiler {
	return &Profiler{
		CallHotThreshold: 100,
	}
}

// RecordInstruction counts one executed instruction.
func (p *Profiler) RecordInstruction(k bytecode.Kind, op bytecode.Op) {
	atomic.AddUint64(&p.steps, 1)
	if int(k) < bytecode.NumKinds && int(op) < bytecode.NumOps {
		atomic.AddUint64(&p.counts[k][op], 1)
	}
}

// RecordCall counts a call into entryPC that left the stack at depth.
// Returns true if this call caused the target to become hot.
func (p *Profiler) RecordCall(entryPC, depth int) bool {
	atomic.AddUint64(&p.calls, 1)
	for {
		cur := atomic.LoadUint64(&p.maxDepth)
		if uint64(depth) <= cur || atomic.CompareAndSwapUint64(&p.maxDepth, cur, uint64(depth)) {
			break
		}
	}

	val, _ := p.callProfiles.LoadOrStore(entryPC, &CallProfile{EntryPC: entryPC})
	profile := val.(*CallProfile)

	count := atomic.AddUint64(&profile.InvocationCount, 1)

	if count >= p.CallHotThreshold && profile.IsHot.CompareAndSwap(false, true) {
		atomic.AddUint64(&p.hotCount, 1)

		if p.OnHot != nil {
			p.OnHot(profile)
		}
		return true
	}
	return false
}

// Count returns how many times (k, op) executed.
func (p *Profiler) Count(k bytecode.Kind, op bytecode.Op) uint64 {
	if int(k) >= bytecode.NumKinds || int(op) >= bytecode.NumOps {
		return 0
	}
	return atomic.LoadUint64(&p.counts[k][op])
}

// GetCallProfile returns the profile for a call target, or nil if it was
// never entered.
func (p *Profiler) GetCallProfile(entryPC int) *CallProfile {
	if val, ok := p.callProfiles.Load(entryPC); ok {
		return val.(*CallProfile)
	}
	return nil
}

// IsCallHot returns true if the call target has exceeded the hot threshold.
func (p *Profiler) IsCallHot(entryPC int) bool {
	profile := p.GetCallProfile(entryPC)
	return profile != nil && profile.IsHot.Load()
}

// ProfilerStats holds aggregate profiling statistics.
type ProfilerStats struct {
	Steps        uint64 // Instructions executed
	Calls        uint64 // Calls taken
	MaxCallDepth uint64 // Deepest call stack observed
	CallTargets  int    // Distinct call targets entered
	HotCalls     int    // Call targets over the threshold
	DistinctOps  int    // (kind, op) pairs executed at least once
}

// Stats returns aggregate profiling statistics.
func (p *Profiler) Stats() ProfilerStats {
	stats := ProfilerStats{
		Steps:        atomic.LoadUint64(&p.steps),
		Calls:        atomic.LoadUint64(&p.calls),
		MaxCallDepth: atomic.LoadUint64(&p.maxDepth),
		HotCalls:     int(atomic.LoadUint64(&p.hotCount)),
	}

	p.callProfiles.Range(func(key, value interface{}) bool {
		stats.CallTargets++
		return true
	})

	for k := range p.counts {
		for op := range p.counts[k] {
			if atomic.LoadUint64(&p.counts[k][op]) > 0 {
				stats.DistinctOps++
			}
		}
	}
	return stats
}

// OpcodeProfile is the execution count of one (kind, op) pair.
type OpcodeProfile struct {
	Kind  bytecode.Kind
	Op    bytecode.Op
	Name  string
	Count uint64
}

// TopOpcodes returns the N most frequently executed opcodes, most frequent first.
func (p *Profiler) TopOpcodes(n int) []OpcodeProfile {
	var all []OpcodeProfile
	for k := range p.counts {
		for op := range p.counts[k] {
			c := atomic.LoadUint64(&p.counts[k][op])
			if c == 0 {
				continue
			}
			kind, o := bytecode.Kind(k), bytecode.Op(op)
			all = append(all, OpcodeProfile{
				Kind:  kind,
				Op:    o,
				Name:  bytecode.GetOpcodeInfo(kind, o).Name,
				Count: c,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Count > all[j].Count })
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Report renders the statistics and every executed opcode as text.
func (p *Profiler) Report() string {
	var sb strings.Builder
	stats := p.Stats()

	fmt.Fprintf(&sb, "steps: %d\n", stats.Steps)
	fmt.Fprintf(&sb, "calls: %d (max depth %d, %d targets, %d hot)\n",
		stats.Calls, stats.MaxCallDepth, stats.CallTargets, stats.HotCalls)
	for _, op := range p.TopOpcodes(-1) {
		fmt.Fprintf(&sb, "  %-12s %10d\n", op.Name, op.Count)
	}
	return sb.String()
}

// Reset clears all profiling data.
func (p *Profiler) Reset() {
	for k := range p.counts {
		for op := range p.counts[k] {
			atomic.StoreUint64(&p.counts[k][op], 0)
		}
	}
	p.callProfiles = sync.Map{}
	atomic.StoreUint64(&p.steps, 0)
	atomic.StoreUint64(&p.calls, 0)
	atomic.StoreUint64(&p.maxDepth, 0)
	atomic.StoreUint64(&p.hotCount, 0)
}
