package dist

import (
	"sort"
	"strings"

	"github.com/chazu/pvm/pkg/bytecode"
)

// Capabilities a program can require.
const (
	CapRead  = "io.read"  // READ
	CapWrite = "io.write" // WRITE
	CapHeap  = "heap"     // NEW, NEW_ARRAY
)

// RequiredCapabilities scans code and returns the capabilities its
// instructions use, sorted.
func RequiredCapabilities(code bytecode.Code) []string {
	set := make(map[string]bool)
	for pc := 0; pc < code.Len(); pc++ {
		in, _ := code.Fetch(pc)
		switch {
		case in.Kind == bytecode.KindUnary && in.Op == bytecode.OpRead:
			set[CapRead] = true
		case in.Kind == bytecode.KindUnary && in.Op == bytecode.OpWrite:
			set[CapWrite] = true
		case in.Kind == bytecode.KindNew:
			set[CapHeap] = true
		}
	}
	caps := make([]string, 0, len(set))
	for c := range set {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}

// CapabilityPolicy controls which capabilities a loaded image may use.
// A nil AllowedCapabilities means "allow all".
type CapabilityPolicy struct {
	AllowedCapabilities map[string]bool // nil = allow all
	DeniedCapabilities  map[string]bool
}

// NewPermissivePolicy creates a policy that allows all capabilities.
func NewPermissivePolicy() *CapabilityPolicy {
	return &CapabilityPolicy{}
}

// NewRestrictedPolicy creates a policy that only allows the specified
// capabilities.
func NewRestrictedPolicy(allowed []string) *CapabilityPolicy {
	m := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		m[c] = true
	}
	return &CapabilityPolicy{AllowedCapabilities: m}
}

// CapabilityError lists the capabilities an image needs but a policy
// refuses.
type CapabilityError struct {
	Denied     []string // on the deny list
	NotAllowed []string // missing from the allow list
}

func (e *CapabilityError) Error() string {
	var parts []string
	if len(e.Denied) > 0 {
		parts = append(parts, "denied: "+strings.Join(e.Denied, ", "))
	}
	if len(e.NotAllowed) > 0 {
		parts = append(parts, "not allowed: "+strings.Join(e.NotAllowed, ", "))
	}
	return "dist: capabilities " + strings.Join(parts, "; ")
}

// Check verifies that every capability required by a manifest is allowed
// by this policy. The returned *CapabilityError names all refused
// capabilities, not just the first.
func (p *CapabilityPolicy) Check(manifest *CapabilityManifest) error {
	if manifest == nil {
		return nil
	}
	var refused CapabilityError
	for _, c := range manifest.Required {
		switch {
		case p.DeniedCapabilities[c]:
			refused.Denied = append(refused.Denied, c)
		case p.AllowedCapabilities != nil && !p.AllowedCapabilities[c]:
			refused.NotAllowed = append(refused.NotAllowed, c)
		}
	}
	if len(refused.Denied) == 0 && len(refused.NotAllowed) == 0 {
		return nil
	}
	return &refused
}

// Deny adds a capability to the deny list.
func (p *CapabilityPolicy) Deny(c string) {
	if p.DeniedCapabilities == nil {
		p.DeniedCapabilities = make(map[string]bool)
	}
	p.DeniedCapabilities[c] = true
}
