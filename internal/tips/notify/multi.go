package notify

import (
	"context"

	tipapp "riftcoach/internal/tips/application"
	tips "riftcoach/internal/tips/domain"
)

// MultiNotifier dispatches tips to multiple notifiers.
type MultiNotifier struct {
	notifiers []tipapp.Notifier
}

// NewMultiNotifier constructs a MultiNotifier. Nil entries are skipped.
func NewMultiNotifier(notifiers ...tipapp.Notifier) *MultiNotifier {
	kept := make([]tipapp.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &MultiNotifier{notifiers: kept}
}

// Add appends a notifier.
func (m *MultiNotifier) Add(notifier tipapp.Notifier) {
	if m == nil || notifier == nil {
		return
	}
	m.notifiers = append(m.notifiers, notifier)
}

// NotifyTip forwards the tip to all notifiers in order.
func (m *MultiNotifier) NotifyTip(ctx context.Context, tip tips.Tip) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		notifier.NotifyTip(ctx, tip)
	}
}
