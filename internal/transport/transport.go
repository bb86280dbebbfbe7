// Package transport coordinates save and load passes over the registered
// participants and a pluggable slot storage. Save and load are mutually
// exclusive phases.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/saveable/internal/report"
	"go.uber.org/zap"
)

var (
	// ErrSlotEmpty is returned by Storage.Read for a slot never written.
	ErrSlotEmpty = errors.New("save slot is empty")
	// ErrBusy: a save or load pass is already running.
	ErrBusy = errors.New("save or load already in progress")
)

// Participant contributes one opaque JSON entry to every save and gets it
// back on load.
type Participant interface {
	SaveID() string
	Capture(ctx context.Context) ([]byte, report.Report, error)
	Restore(ctx context.Context, data []byte) (report.Report, error)
}

// Storage persists the entries of one slot, keyed by participant save id.
// Entries are JSON documents.
type Storage interface {
	Write(ctx context.Context, slot string, entries map[string][]byte) error
	Read(ctx context.Context, slot string) (map[string][]byte, error)
}

// SlotInfo describes one stored slot.
type SlotInfo struct {
	Slot    string    `json:"slot" yaml:"slot"`
	SavedAt time.Time `json:"savedAt" yaml:"savedAt"`
}

// Lister is implemented by storages that can enumerate their slots.
type Lister interface {
	Slots(ctx context.Context) ([]SlotInfo, error)
}

type phase int32

const (
	phaseIdle phase = iota
	phaseSaving
	phaseLoading
)

// Transport is safe for concurrent use; Save and Load themselves run the
// participants on the caller's goroutine.
type Transport struct {
	mu           sync.Mutex
	participants []Participant
	storage      Storage
	phase        atomic.Int32
	log          *zap.Logger
}

func New(storage Storage, log *zap.Logger) *Transport {
	return &Transport{storage: storage, log: log}
}

// Subscribe registers p. Save ids must be unique.
func (t *Transport) Subscribe(p Participant) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, q := range t.participants {
		if q.SaveID() == p.SaveID() {
			return fmt.Errorf("participant %q already subscribed", p.SaveID())
		}
	}
	t.participants = append(t.participants, p)
	return nil
}

func (t *Transport) Unsubscribe(p Participant) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, q := range t.participants {
		if q == p {
			t.participants = append(t.participants[:i], t.participants[i+1:]...)
			return
		}
	}
}

// IsLoading reports whether a load pass is running.
func (t *Transport) IsLoading() bool { return phase(t.phase.Load()) == phaseLoading }


func (t *Transport) snapshot() []Participant {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Participant(nil), t.participants...)
}

func (t *Transport) enter(p phase) error {
	if !t.phase.CompareAndSwap(int32(phaseIdle), int32(p)) {
		return ErrBusy
	}
	return nil
}

func (t *Transport) leave() { t.phase.Store(int32(phaseIdle)) }

// Save captures every participant and writes the slot. A participant that
// fails to capture is left out of the slot and reported; only a storage
// failure fails the save.
func (t *Transport) Save(ctx context.Context, slot string) (report.Report, error) {
	var rep report.Report
	if err := t.enter(phaseSaving); err != nil {
		return rep, err
	}
	defer t.leave()

	entries := make(map[string][]byte)
	for _, p := range t.snapshot() {
		data, prep, err := p.Capture(ctx)
		rep.Merge(prep)
		if err != nil {
			t.log.Error("participant capture failed", zap.String("participant", p.SaveID()), zap.Error(err))
			rep.Add(fmt.Errorf("capture %s: %w", p.SaveID(), err))
			continue
		}
		entries[p.SaveID()] = data
	}
	if err := t.storage.Write(ctx, slot, entries); err != nil {
		return rep, fmt.Errorf("write slot %s: %w", slot, err)
	}
	t.log.Info("saved",
		zap.String("slot", slot),
		zap.Int("participants", len(entries)),
		zap.Int("warnings", rep.Len()))
	return rep, nil
}

// Load reads the slot and hands each participant its entry. Participants
// without an entry are left alone.
func (t *Transport) Load(ctx context.Context, slot string) (report.Report, error) {
	var rep report.Report
	if err := t.enter(phaseLoading); err != nil {
		return rep, err
	}
	defer t.leave()

	entries, err := t.storage.Read(ctx, slot)
	if err != nil {
		return rep, fmt.Errorf("read slot %s: %w", slot, err)
	}
	for _, p := range t.snapshot() {
		data, ok := entries[p.SaveID()]
		if !ok {
			t.log.Debug("no saved entry for participant", zap.String("participant", p.SaveID()))
			continue
		}
		prep, err := p.Restore(ctx, data)
		rep.Merge(prep)
		if err != nil {
			if ctx.Err() != nil {
				return rep, fmt.Errorf("restore %s: %w", p.SaveID(), err)
			}
			t.log.Error("participant restore failed", zap.String("participant", p.SaveID()), zap.Error(err))
			rep.Add(fmt.Errorf("restore %s: %w", p.SaveID(), err))
		}
	}
	t.log.Info("loaded", zap.String("slot", slot), zap.Int("warnings", rep.Len()))
	return rep, nil
}
