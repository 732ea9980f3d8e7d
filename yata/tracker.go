// Package yata implements the collaborative-text CRDT tracker: YSpans
// ordered by the YATA algorithm over an rle.Tree, with an idmap.Map
// cursor map keeping anchor resolution fast.
package yata

import (
	"strings"

	"golang.org/x/xerrors"

	"github.com/mbrt/yatatree/idmap"
	"github.com/mbrt/yatatree/rle"
	"github.com/mbrt/yatatree/wire"
)

// loggedDelete is one delete call's causal record: its own id (minted
// from the issuing replica's clock) and the content range it targets.
type loggedDelete struct {
	OpID   ID
	Target IDSpan
}

// loggedOp is one entry of a Tracker's append-only op log, replayed by
// Export. Exactly one field is set.
type loggedOp struct {
	insert *YSpan
	del    *loggedDelete
}

// Tracker is one replica's CRDT state: the document tree, its cursor map,
// version vector, and the log of ops applied so far.
type Tracker struct {
	clientID uint64
	counter  uint32

	tree    *rle.Tree[YSpan]
	cursors *idmap.Map[YSpan]
	vv      VV
	cfg     config

	log            []loggedOp
	pendingSpans   []YSpan
	pendingDeletes []loggedDelete
}

// NewTracker constructs an empty tracker for client clientID.
func NewTracker(clientID uint64, opts ...TrackerOption) *Tracker {
	cfg := defaultConfig
	for _, o := range opts {
		o(&cfg)
	}
	cursors := idmap.New[YSpan]()
	notify := idmap.Notifier[YSpan](cursors,
		func(s YSpan) uint64 { return s.ID.Client },
		func(s YSpan) uint32 { return s.ID.Counter },
		func(s YSpan) uint32 { return s.ID.Counter + uint32(len(s.Content)) },
	)
	tree := rle.New[YSpan](cfg.rle, notify)
	return &Tracker{
		clientID: clientID,
		tree:     tree,
		cursors:  cursors,
		vv:       VV{},
		cfg:      cfg,
	}
}

// ClientID returns the replica's own client id.
func (t *Tracker) ClientID() uint64 { return t.clientID }

// Version returns a copy of the replica's current version vector.
func (t *Tracker) Version() VV { return t.vv.Clone() }

// Text materializes the visible document by walking the leaf chain.
func (t *Tracker) Text() string {
	var b strings.Builder
	for leaf := t.tree.FirstLeaf(); leaf != nil; leaf = leaf.Next() {
		for i := 0; i < leaf.NumItems(); i++ {
			it := leaf.ItemAt(i)
			if !it.Status.Visible() {
				continue
			}
			b.WriteString(string(it.Content))
		}
	}
	return b.String()
}

// Insert inserts text at the visible document position pos.
func (t *Tracker) Insert(pos int, text string) error {
	total := t.tree.Len(rle.ByVisible)
	if pos < 0 || pos > total {
		return ErrInvalidPosition
	}
	if text == "" {
		return nil
	}
	content := []rune(text)

	var originLeft, originRight *ID
	if pos > 0 {
		c := t.tree.Locate(rle.ByVisible, pos-1)
		it := c.Leaf.ItemAt(c.ItemIndex)
		id := it.ID.Add(uint32(c.Offset))
		originLeft = &id
	}
	if pos < total {
		c := t.tree.Locate(rle.ByVisible, pos)
		it := c.Leaf.ItemAt(c.ItemIndex)
		id := it.ID.Add(uint32(c.Offset))
		originRight = &id
	}

	span := YSpan{
		ID:          ID{Client: t.clientID, Counter: t.counter},
		OriginLeft:  originLeft,
		OriginRight: originRight,
		Content:     content,
	}
	t.counter += uint32(len(content))
	if err := t.integrateSpan(span); err != nil {
		invariantViolation("local-anchor-resolvable", "local insert anchors failed to resolve: %v", err)
	}
	t.log = append(t.log, loggedOp{insert: &span})
	t.maybeCheckConsistency()
	return nil
}

// Delete removes length visible characters starting at pos, tombstoning
// the spans (or slices of them) that cover the range. Each distinct span
// touched mints its own delete-op id from the local clock, so that
// re-integrating the same deletion elsewhere is idempotent per span.
func (t *Tracker) Delete(pos, length int) error {
	total := t.tree.Len(rle.ByVisible)
	if pos < 0 || length < 0 || pos+length > total {
		return ErrInvalidPosition
	}
	if length == 0 {
		return nil
	}
	var dels []loggedDelete
	t.tree.UpdateRange(rle.ByVisible, pos, pos+length, func(s YSpan) YSpan {
		opID := ID{Client: t.clientID, Counter: t.counter}
		t.counter++
		dels = append(dels, loggedDelete{
			OpID:   opID,
			Target: IDSpan{Client: s.ID.Client, From: s.ID.Counter, To: s.ID.Counter + uint32(len(s.Content))},
		})
		s.Status.DeleteTimes++
		return s
	})
	for _, d := range dels {
		t.vv.Advance(d.OpID.Client, d.OpID.Counter+1)
		t.log = append(t.log, loggedOp{del: &d})
	}
	t.maybeCheckConsistency()
	return nil
}

// Integrate applies a framed op stream produced by Export. Ops whose
// anchors (insertions) or targets (deletions) aren't yet known are queued
// and retried after each successful integration in this and future calls,
// up to a fixed point. It returns ErrMissingDependency if the call applies
// no op at all while ops remain queued, or an error wrapping
// ErrMalformedFrame if decoding failed partway through (everything decoded
// before the failure is still applied).
func (t *Tracker) Integrate(data []byte) error {
	ops, decodeErr := wire.Decode(data)

	pendingSpans := append([]YSpan{}, t.pendingSpans...)
	pendingDeletes := append([]loggedDelete{}, t.pendingDeletes...)
	for _, op := range ops {
		switch {
		case op.Insertion != nil:
			pendingSpans = append(pendingSpans, spanFromWire(op.Insertion))
		case op.Deletion != nil:
			pendingDeletes = append(pendingDeletes, deleteFromWire(op.Deletion))
		}
	}

	anyProgress := false
	var lastBlocker error
	for {
		progressed := false

		var stillSpans []YSpan
		for _, span := range pendingSpans {
			if t.vv.Covers(span.ID, uint32(len(span.Content))) {
				continue
			}
			if err := t.integrateSpan(span); err != nil {
				stillSpans = append(stillSpans, span)
				lastBlocker = err
				continue
			}
			t.log = append(t.log, loggedOp{insert: &span})
			progressed = true
		}
		pendingSpans = stillSpans

		var stillDeletes []loggedDelete
		for _, d := range pendingDeletes {
			if t.vv.Covers(d.OpID, 1) {
				continue
			}
			if !t.cursors.Has(d.Target.Client, d.Target.From) {
				stillDeletes = append(stillDeletes, d)
				lastBlocker = wrapUnintegratable(ID{Client: d.Target.Client, Counter: d.Target.From})
				continue
			}
			t.deleteByID(d.Target)
			t.vv.Advance(d.OpID.Client, d.OpID.Counter+1)
			t.log = append(t.log, loggedOp{del: &d})
			progressed = true
		}
		pendingDeletes = stillDeletes

		anyProgress = anyProgress || progressed
		if !progressed {
			break
		}
	}

	t.pendingSpans = pendingSpans
	t.pendingDeletes = pendingDeletes
	t.maybeCheckConsistency()

	if decodeErr != nil {
		return xerrors.Errorf("%v: %w", decodeErr, ErrMalformedFrame)
	}
	if !anyProgress && (len(pendingSpans)+len(pendingDeletes) > 0) {
		return wrapMissingDependency(lastBlocker)
	}
	return nil
}

// Export renders every logged op not yet covered by since as a framed
// byte stream, slicing insertions at the since frontier.
func (t *Tracker) Export(since VV) []byte {
	var ops []wire.Op
	for _, entry := range t.log {
		switch {
		case entry.insert != nil:
			s := *entry.insert
			start := since[s.ID.Client]
			end := s.ID.Counter + uint32(len(s.Content))
			if end <= start {
				continue
			}
			from := s.ID.Counter
			if start > from {
				from = start
			}
			sliced := s.Slice(int(from-s.ID.Counter), len(s.Content))
			ops = append(ops, wire.Op{Insertion: &wire.Insertion{
				Client:       sliced.ID.Client,
				CounterStart: sliced.ID.Counter,
				OriginLeft:   toWireID(sliced.OriginLeft),
				OriginRight:  toWireID(sliced.OriginRight),
				Text:         string(sliced.Content),
			}})
		case entry.del != nil:
			d := *entry.del
			if d.OpID.Counter+1 <= since[d.OpID.Client] {
				continue
			}
			ops = append(ops, wire.Op{Deletion: &wire.Deletion{
				OpClient:    d.OpID.Client,
				OpCounter:   d.OpID.Counter,
				Client:      d.Target.Client,
				CounterFrom: d.Target.From,
				CounterTo:   d.Target.To,
			}})
		}
	}
	return wire.Encode(ops)
}

func (t *Tracker) maybeCheckConsistency() {
	if t.cfg.enableConsistencyChecks {
		t.CheckConsistency()
	}
}

func toWireID(id *ID) *wire.ID {
	if id == nil {
		return nil
	}
	return &wire.ID{Client: id.Client, Counter: id.Counter}
}

func fromWireID(id *wire.ID) *ID {
	if id == nil {
		return nil
	}
	return &ID{Client: id.Client, Counter: id.Counter}
}

func spanFromWire(ins *wire.Insertion) YSpan {
	return YSpan{
		ID:          ID{Client: ins.Client, Counter: ins.CounterStart},
		OriginLeft:  fromWireID(ins.OriginLeft),
		OriginRight: fromWireID(ins.OriginRight),
		Content:     []rune(ins.Text),
	}
}

func deleteFromWire(del *wire.Deletion) loggedDelete {
	return loggedDelete{
		OpID:   ID{Client: del.OpClient, Counter: del.OpCounter},
		Target: IDSpan{Client: del.Client, From: del.CounterFrom, To: del.CounterTo},
	}
}
