package tracker

import (
	"context"

	"github.com/l1jgo/saveable/internal/instance"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/transport"
)

func (t *Tracker) SaveID() string { return SaveID }

func (t *Tracker) Capture(context.Context) ([]byte, report.Report, error) {
	data, err := instance.Encode(t.GetSaveData())
	return data, report.Report{}, err
}

func (t *Tracker) Restore(ctx context.Context, data []byte) (report.Report, error) {
	records, err := instance.Decode(data)
	if err != nil {
		return report.Report{}, err
	}
	return t.OnLoad(ctx, records)
}

// Attach subscribes the tracker to tr for the rest of its life.
func (t *Tracker) Attach(tr *transport.Transport) error {
	if err := tr.Subscribe(t); err != nil {
		return err
	}
	t.transport = tr
	return nil
}

// Detach undoes Attach.
func (t *Tracker) Detach() {
	if t.transport != nil {
		t.transport.Unsubscribe(t)
		t.transport = nil
	}
}

var _ transport.Participant = (*Tracker)(nil)
