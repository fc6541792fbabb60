package upgrade

import (
	"sort"

	"github.com/vulminator-io/vulminator/internal/findings"
)

// Entry lists the packages to upgrade for one lockfile.
type Entry struct {
	Manifest string
	Packages []string
}

// Plan is the ordered set of upgrades derived from an audit, in lockfile discovery order.
type Plan []Entry

// Packages returns the total number of packages in the plan.
func (p Plan) Packages() int {
	n := 0
	for _, e := range p {
		n += len(e.Packages)
	}
	return n
}

// Planner accumulates upgrade candidates whose severity is in the configured set.
type Planner struct {
	severities []string
	manifests  []string
	packages   map[string]map[string]struct{}
}

// NewPlanner creates a Planner flagging the given severities.
func NewPlanner(severities []string) *Planner {
	return &Planner{
		severities: severities,
		packages:   make(map[string]map[string]struct{}),
	}
}

// Add records pkg for manifest when severity qualifies and reports whether it did.
func (p *Planner) Add(manifest, pkg string, severity findings.Severity) bool {
	if !severity.In(p.severities) {
		return false
	}
	set, ok := p.packages[manifest]
	if !ok {
		set = make(map[string]struct{})
		p.packages[manifest] = set
		p.manifests = append(p.manifests, manifest)
	}
	set[pkg] = struct{}{}
	return true
}

// Plan returns the accumulated plan with packages sorted per manifest.
func (p *Planner) Plan() Plan {
	plan := make(Plan, 0, len(p.manifests))
	for _, m := range p.manifests {
		pkgs := make([]string, 0, len(p.packages[m]))
		for pkg := range p.packages[m] {
			pkgs = append(pkgs, pkg)
		}
		sort.Strings(pkgs)
		plan = append(plan, Entry{Manifest: m, Packages: pkgs})
	}
	return plan
}
