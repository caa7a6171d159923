package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"order_cache/internal/domain"
	"order_cache/internal/event"
)

// Sequencer applies sequenced commands to an OrderCache in strict order.
type Sequencer struct {
	inbox   chan *event.Command
	cache   domain.OrderCache
	nextSeq uint64

	// Boundary: notifies other systems (websocket feed, script output) of results
	onResult func(event.Result)

	mu        sync.RWMutex // guards nextSeq and lastMatch for external reads
	lastMatch map[string]event.Result

	dumpPath string
}

// NewSequencer creates a sequencer expecting seq 1 first.
func NewSequencer(inboxSize int, cache domain.OrderCache, onResult func(event.Result)) *Sequencer {
	return &Sequencer{
		inbox:     make(chan *event.Command, inboxSize),
		cache:     cache,
		nextSeq:   1,
		onResult:  onResult,
		lastMatch: make(map[string]event.Result),
		dumpPath:  "panic_dump.json",
	}
}

// SetDumpPath changes where Run writes its state dump before halting.
func (s *Sequencer) SetDumpPath(path string) {
	s.dumpPath = path
}

// Inbox returns the command channel. Commands sent here must come from
// event.AcquireCommand; the sequencer releases them after processing.
// Closing the inbox stops Run once the queued commands are applied.
func (s *Sequencer) Inbox() chan<- *event.Command {
	return s.inbox
}

// Run starts the command loop. It MUST run in a single goroutine.
// A sequence gap halts the loop: state is dumped, then Run panics.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case cmd, ok := <-s.inbox:
			if !ok {
				slog.Info("Sequencer inbox closed")
				return
			}
			if _, err := s.Process(cmd); err != nil {
				panic(err.Error())
			}
			event.ReleaseCommand(cmd)
		}
	}
}

// Process applies cmd synchronously and must not be called concurrently with itself
// or Run. Out-of-order commands are rejected with domain.ErrSequenceGap and leave the
// cache untouched. A command that fails to apply does not consume its sequence number.
func (s *Sequencer) Process(cmd *event.Command) (event.Result, error) {
	if expected := s.NextSeq(); cmd.Seq != expected {
		return event.Result{}, fmt.Errorf("%w: expected %d, got %d", domain.ErrSequenceGap, expected, cmd.Seq)
	}

	res, err := s.apply(cmd)
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	s.nextSeq++
	if res.IsMatch() {
		s.lastMatch[res.SecurityID] = res
	}
	s.mu.Unlock()

	if s.onResult != nil {
		s.onResult(res)
	}
	return res, nil
}

func (s *Sequencer) apply(cmd *event.Command) (event.Result, error) {
	res := event.Result{Seq: cmd.Seq, Kind: cmd.Kind, SecurityID: cmd.SecurityID}

	switch cmd.Kind {
	case event.KindAdd:
		s.cache.AddOrder(cmd.Order)
		res.SecurityID = cmd.Order.SecurityID
	case event.KindCancel:
		s.cache.CancelOrder(cmd.OrderID)
	case event.KindCancelUser:
		s.cache.CancelOrdersForUser(cmd.User)
	case event.KindCancelSecurity:
		s.cache.CancelOrdersForSecIDWithMinimumQty(cmd.SecurityID, cmd.MinQty)
	case event.KindMatch, event.KindMatchExtract, event.KindPeek:
		policy, _ := cmd.Kind.Policy()
		qty, err := policy.Match(s.cache, cmd.SecurityID)
		if err != nil {
			return res, err
		}
		res.Policy = policy
		res.MatchedQty = qty
	case event.KindPurge:
		res.Purged = s.cache.PurgeFilled()
	default:
		slog.Warn("Unknown command kind", slog.Any("kind", cmd.Kind), slog.Uint64("seq", cmd.Seq))
		return res, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd.Kind)
	}

	res.Resident = s.cache.Len()
	return res, nil
}

// NextSeq returns the sequence number the sequencer expects next.
func (s *Sequencer) NextSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSeq
}

// LastMatch returns the most recent matching result for a security.
func (s *Sequencer) LastMatch(securityID string) (event.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.lastMatch[securityID]
	return res, ok
}

// DumpState writes the sequencer and cache state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	s.mu.RLock()
	data := struct {
		NextSeq   uint64                  `json:"next_seq"`
		LastMatch map[string]event.Result `json:"last_match"`
		Orders    []domain.Order          `json:"orders"`
	}{
		NextSeq:   s.nextSeq,
		LastMatch: s.lastMatch,
		Orders:    s.cache.GetAllOrders(),
	}
	b, err := json.MarshalIndent(data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
