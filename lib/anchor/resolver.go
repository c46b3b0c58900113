package anchor

import (
	"sort"
	"strings"

	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/doc"
	"go.uber.org/zap"
)

// Tracked is a range the resolver keeps up to date across edits.
type Tracked struct {
	Key      string
	Range    doc.AnchorRange
	Degraded bool
}

// Resolver remaps every tracked range once per document change. Owners
// (comments, selection, highlights) register ranges under their own key
// prefix and read them back after the edit.
type Resolver struct {
	documentID string
	tracked    map[string]*Tracked
	hooks      *hooks.Hook
	logger     *zap.SugaredLogger
}

func NewResolver(documentID string, hook *hooks.Hook, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{
		documentID: documentID,
		tracked:    make(map[string]*Tracked),
		hooks:      hook,
		logger:     logger,
	}
}

// Track starts (or restarts) tracking r under key.
func (r *Resolver) Track(key string, ar doc.AnchorRange) {
	r.tracked[key] = &Tracked{Key: key, Range: ar}
}

func (r *Resolver) Untrack(key string) {
	delete(r.tracked, key)
}

func (r *Resolver) Get(key string) (Tracked, bool) {
	t, ok := r.tracked[key]
	if !ok {
		return Tracked{}, false
	}
	return *t, true
}

// Keys lists the tracked keys starting with prefix, sorted.
func (r *Resolver) Keys(prefix string) []string {
	var keys []string
	for k := range r.tracked {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Apply remaps all tracked ranges through the edit and returns the ones that
// degraded with it. Degradation is sticky until the key is tracked again.
func (r *Resolver) Apply(result *document.EditResult) []Tracked {
	if result.Diff.Empty() {
		return nil
	}
	var degraded []Tracked
	for _, key := range r.Keys("") {
		t := r.tracked[key]
		mapped, lost := Remap(t.Range, result.Diff)
		t.Range = mapped
		if lost && !t.Degraded {
			t.Degraded = true
			degraded = append(degraded, *t)
		}
	}
	for _, t := range degraded {
		r.logger.Debugw("anchor degraded", "document", r.documentID, "key", t.Key, "label", result.Label)
		if r.hooks != nil {
			r.hooks.ExecuteAnchorDegradedHooks(&events.AnchorDegraded{
				DocumentID: r.documentID,
				Key:        t.Key,
				Range:      t.Range,
			})
		}
	}
	return degraded
}

// Attach subscribes the resolver to d. Components reading tracked ranges in
// their own listeners must subscribe after it.
func (r *Resolver) Attach(d *document.Document) func() {
	return d.Subscribe(func(result *document.EditResult) {
		r.Apply(result)
	})
}
