package storage

import "sync"

// Change describes which parts of the ledger a committed write touched.
// Views use it to decide whether to re-query.
type Change struct {
	Envelopes    bool
	Transactions bool
	EnvelopeIDs  []string
}

func (c *Change) merge(other Change) {
	c.Envelopes = c.Envelopes || other.Envelopes
	c.Transactions = c.Transactions || other.Transactions
	c.EnvelopeIDs = append(c.EnvelopeIDs, other.EnvelopeIDs...)
}

// TouchesEnvelope reports whether the change affects the given envelope,
// either through its record or through a transaction referencing it.
func (c Change) TouchesEnvelope(id string) bool {
	if c.Envelopes {
		return true
	}
	for _, e := range c.EnvelopeIDs {
		if e == id {
			return true
		}
	}
	return false
}

// Notifier fans committed changes out to subscribers. Each subscriber
// channel is buffered with one slot; when a subscriber lags, pending
// notifications are coalesced into a single merged Change rather than
// dropped, so a slow reader still observes every affected query.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Change
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Change)}
}

func (n *Notifier) Subscribe() (int, <-chan Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan Change, 1)
	n.subs[id] = ch
	return id, ch
}

func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

func (n *Notifier) Publish(c Change) {
	if !c.Envelopes && !c.Transactions {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- c:
		default:
			// Buffer full: coalesce with the pending notification.
			// Publish holds the lock, so the slot we drain stays ours.
			merged := c
			select {
			case pending := <-ch:
				pending.merge(c)
				merged = pending
			default:
			}
			select {
			case ch <- merged:
			default:
			}
		}
	}
}
