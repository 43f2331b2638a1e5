// Package loop keeps the loop counter and the narrative hint set that
// survive world resets, and persists them through a save slot store.
package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/threeworlds/loopshift/internal/core/event"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DefaultSlot is the save slot loop data lives in.
const DefaultSlot = "ThreeWorldsLoopData"

// Store is the durable save medium. Load reports ok=false when the slot has
// never been written.
type Store interface {
	Load(ctx context.Context, slot string) (blob []byte, ok bool, err error)
	Save(ctx context.Context, slot string, blob []byte) error
}

// SaveData is the persisted blob.
type SaveData struct {
	LoopCount       int          `json:"loopCount"`
	PersistentHints []HintRecord `json:"persistentHints"`
}

// Memory owns the loop counter and the hint records. It is driven from the
// simulation goroutine only.
type Memory struct {
	store   Store
	slot    string
	timeout time.Duration
	log     *zap.Logger

	loopCount int
	hints     map[string]*HintRecord
	order     []string
	dirty     bool

	LoopCountChanged      event.Signal[int]
	HintChanged           event.Signal[HintRecord]
	HintCollectionChanged event.Signal[struct{}]
	SaveFailed            event.Signal[error]
}

// NewMemory returns an empty zero-loop memory. store may be nil, in which
// case nothing is persisted.
func NewMemory(store Store, slot string, timeout time.Duration, log *zap.Logger) *Memory {
	if slot == "" {
		slot = DefaultSlot
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Memory{
		store:   store,
		slot:    slot,
		timeout: timeout,
		log:     log,
		hints:   make(map[string]*HintRecord, 16),
	}
}

// Load replaces the in-memory state with the save slot. A slot that was
// never written yields a fresh zero state. A read or decode failure also
// leaves a fresh state and is returned for the caller to log.
func (m *Memory) Load(ctx context.Context) error {
	m.hints = make(map[string]*HintRecord, 16)
	m.order = m.order[:0]
	m.loopCount = 0

	var data SaveData
	var loadErr error
	if m.store != nil {
		blob, ok, err := m.store.Load(ctx, m.slot)
		switch {
		case err != nil:
			loadErr = fmt.Errorf("load slot %s: %w", m.slot, err)
		case ok:
			if err := json.Unmarshal(blob, &data); err != nil {
				loadErr = fmt.Errorf("decode slot %s: %w", m.slot, err)
				data = SaveData{}
			}
		}
	}

	for _, h := range data.PersistentHints {
		h.ID = normalizeID(h.ID)
		if !h.Persistent || h.ID == "" {
			continue
		}
		if _, dup := m.hints[h.ID]; dup {
			continue
		}
		rec := h
		m.hints[rec.ID] = &rec
		m.order = append(m.order, rec.ID)
	}
	m.applyLoopCount(data.LoopCount, true)
	m.HintCollectionChanged.Emit(struct{}{})
	return loadErr
}

// LoopCount returns the number of completed loops.
func (m *Memory) LoopCount() int { return m.loopCount }

func (m *Memory) IncrementLoopCount() { m.applyLoopCount(m.loopCount+1, false) }

// SetLoopCount sets the counter; negative values clamp to zero.
func (m *Memory) SetLoopCount(n int) { m.applyLoopCount(n, false) }

func (m *Memory) ResetLoopCount() { m.applyLoopCount(0, false) }

// applyLoopCount is the single write path for the counter. Unchanged values
// only notify when they come from a load. A load always re-checks Future
// thresholds since the restored hints may already be due.
func (m *Memory) applyLoopCount(n int, fromLoad bool) {
	if n < 0 {
		n = 0
	}
	changed := n != m.loopCount
	if !changed && !fromLoad {
		return
	}
	m.loopCount = n
	promoted := m.promoteUnlocked()
	if changed && !fromLoad {
		m.save()
	}
	m.LoopCountChanged.Emit(n)
	for _, rec := range promoted {
		m.HintChanged.Emit(rec)
	}
	if len(promoted) > 0 {
		m.HintCollectionChanged.Emit(struct{}{})
	}
}

// promoteUnlocked moves every Future hint whose threshold has been reached
// to Present, pinned at the current loop.
func (m *Memory) promoteUnlocked() []HintRecord {
	var out []HintRecord
	for _, id := range m.order {
		h := m.hints[id]
		if h.State == Future && h.LoopToUnlock <= m.loopCount {
			h.State = Present
			h.LoopToUnlock = m.loopCount
			out = append(out, *h)
		}
	}
	return out
}

// AddHint records a new hint. Empty or already known ids are rejected. A
// Future hint whose unlock loop has already been reached is stored as
// Present at the current loop.
func (m *Memory) AddHint(id, text string, persistent bool, state TemporalState, unlockLoop int) bool {
	id = normalizeID(id)
	if id == "" {
		return false
	}
	if _, ok := m.hints[id]; ok {
		return false
	}
	rec := &HintRecord{
		ID:           id,
		Text:         text,
		Persistent:   persistent,
		State:        state,
		LoopToUnlock: unlockLoop,
	}
	if rec.State == Future && rec.LoopToUnlock <= m.loopCount {
		rec.State = Present
		rec.LoopToUnlock = m.loopCount
	}
	m.hints[id] = rec
	m.order = append(m.order, id)

	m.HintChanged.Emit(*rec)
	m.HintCollectionChanged.Emit(struct{}{})
	if rec.Persistent {
		m.save()
	}
	return true
}

// RevealHint promotes a Future hint to Present at the current loop.
func (m *Memory) RevealHint(id string) bool {
	h, ok := m.hints[normalizeID(id)]
	if !ok || h.State != Future {
		return false
	}
	h.State = Present
	h.LoopToUnlock = m.loopCount
	m.HintChanged.Emit(*h)
	m.HintCollectionChanged.Emit(struct{}{})
	if h.Persistent {
		m.save()
	}
	return true
}

// GetHint returns a copy of one record.
func (m *Memory) GetHint(id string) (HintRecord, bool) {
	h, ok := m.hints[normalizeID(id)]
	if !ok {
		return HintRecord{}, false
	}
	return *h, true
}

// HasHint reports whether id is known in any temporal state.
func (m *Memory) HasHint(id string) bool {
	_, ok := m.hints[normalizeID(id)]
	return ok
}

// GetAllHints returns copies of every record in insertion order.
func (m *Memory) GetAllHints() []HintRecord {
	out := make([]HintRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.hints[id])
	}
	return out
}

// GetVisibleHints returns the Past and Present hints in insertion order.
func (m *Memory) GetVisibleHints() []HintRecord {
	out := make([]HintRecord, 0, len(m.order))
	for _, id := range m.order {
		if h := m.hints[id]; h.State.Visible() {
			out = append(out, *h)
		}
	}
	return out
}

// ClearHintsOnReset drops non-persistent hints and turns persistent Present
// hints into Past. It saves only when a persistent hint changed.
func (m *Memory) ClearHintsOnReset() {
	kept := m.order[:0]
	removed := false
	var aged []HintRecord
	for _, id := range m.order {
		h := m.hints[id]
		if !h.Persistent {
			delete(m.hints, id)
			removed = true
			continue
		}
		if h.State == Present {
			h.State = Past
			aged = append(aged, *h)
		}
		kept = append(kept, id)
	}
	m.order = kept

	if len(aged) > 0 {
		m.save()
	}
	for _, rec := range aged {
		m.HintChanged.Emit(rec)
	}
	if removed || len(aged) > 0 {
		m.HintCollectionChanged.Emit(struct{}{})
	}
}

// ClearAllHints forgets every hint, saves and always notifies.
func (m *Memory) ClearAllHints() {
	m.hints = make(map[string]*HintRecord, 16)
	m.order = m.order[:0]
	m.save()
	m.HintCollectionChanged.Emit(struct{}{})
}

// Dirty reports whether the last save attempt failed.
func (m *Memory) Dirty() bool { return m.dirty }

// Flush retries a failed save. It is a no-op when nothing is pending.
func (m *Memory) Flush(ctx context.Context) error {
	if !m.dirty || m.store == nil {
		return nil
	}
	return m.saveCtx(ctx)
}

// Snapshot returns the blob that would be saved right now.
func (m *Memory) Snapshot() SaveData {
	data := SaveData{LoopCount: m.loopCount, PersistentHints: []HintRecord{}}
	for _, id := range m.order {
		if h := m.hints[id]; h.Persistent {
			data.PersistentHints = append(data.PersistentHints, *h)
		}
	}
	return data
}

func (m *Memory) save() {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.saveCtx(ctx); err != nil {
		m.log.Error("loop memory save failed", zap.String("slot", m.slot), zap.Error(err))
	}
}

func (m *Memory) saveCtx(ctx context.Context) error {
	blob, err := json.Marshal(m.Snapshot())
	if err != nil {
		m.dirty = true
		return fmt.Errorf("encode slot %s: %w", m.slot, err)
	}
	if err := m.store.Save(ctx, m.slot, blob); err != nil {
		m.dirty = true
		err = fmt.Errorf("save slot %s: %w", m.slot, err)
		m.SaveFailed.Emit(err)
		return err
	}
	m.dirty = false
	return nil
}

// normalizeID trims and NFC-normalises a hint id so visually identical ids
// typed on different platforms collide.
func normalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}
