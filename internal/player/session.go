package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
)

// VoiceSession is the playback state of one guild. Methods with the Locked
// suffix expect mu to be held for writing.
type VoiceSession struct {
	m       *Manager
	guildID string

	mu            sync.RWMutex
	state         State
	channelID     string
	textChannelID string
	queue         Queue
	current       *TrackRef
	repeat        bool
	paused        bool
	volume        int
	connected     bool
	connectedAt   time.Time
	closed        bool

	idleTimer *time.Timer
	idleGen   uint64

	mailboxMu sync.Mutex
	mailbox   []audionode.Event
	wake      chan struct{}
	done      chan struct{}
}

func newVoiceSession(m *Manager, guildID string) *VoiceSession {
	s := &VoiceSession{
		m:       m,
		guildID: guildID,
		state:   StateIdle,
		volume:  DefaultVolume,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *VoiceSession) GuildID() string { return s.guildID }

// post queues ev for the session worker. It never blocks on the session lock.
func (s *VoiceSession) post(ev audionode.Event) {
	s.mailboxMu.Lock()
	s.mailbox = append(s.mailbox, ev)
	s.mailboxMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *VoiceSession) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mailboxMu.Lock()
			if len(s.mailbox) == 0 {
				s.mailboxMu.Unlock()
				break
			}
			ev := s.mailbox[0]
			s.mailbox[0] = nil
			s.mailbox = s.mailbox[1:]
			s.mailboxMu.Unlock()

			s.dispatch(ev)
		}
	}
}

func (s *VoiceSession) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		GuildID:       s.guildID,
		ChannelID:     s.channelID,
		TextChannelID: s.textChannelID,
		State:         s.state,
		Connected:     s.connected,
		Queue:         s.queue.Tracks(),
		Repeat:        s.repeat,
		Paused:        s.paused,
		Volume:        s.volume,
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
		snap.Position = s.m.node.Position(s.guildID)
	}
	return snap
}

// release unlocks the session. A session that never got connected is
// discarded so the guild starts from a clean slate next time.
func (s *VoiceSession) release() {
	if !s.connected && !s.closed {
		s.closeLocked()
	}
	s.mu.Unlock()
}

func (s *VoiceSession) closeLocked() {
	s.state = StateIdle
	s.closed = true
	close(s.done)
	s.m.remove(s)
}

func (s *VoiceSession) connectLocked(ctx context.Context, channelID, textChannelID string) error {
	s.state = StateConnecting
	s.channelID = channelID
	s.textChannelID = textChannelID

	if err := s.m.voice.JoinVoice(ctx, s.guildID, channelID); err != nil {
		s.state = StateIdle
		s.channelID = ""
		s.textChannelID = ""
		leaveCtx, cancel := s.m.nodeContext(context.WithoutCancel(ctx))
		defer cancel()
		if lerr := s.m.voice.LeaveVoice(leaveCtx, s.guildID); lerr != nil {
			slog.Warn("leave after failed join", "guildID", s.guildID, "err", lerr)
		}
		return fmt.Errorf("join voice: %w", err)
	}
	s.connected = true
	s.connectedAt = time.Now()
	s.state = StateQueueEmpty
	slog.Info("voice connected", "guildID", s.guildID, "channelID", channelID)
	return nil
}

func (s *VoiceSession) playLocked(ctx context.Context, t TrackRef) error {
	ctx, cancel := s.m.nodeContext(ctx)
	defer cancel()
	if err := s.m.node.Play(ctx, s.guildID, t.nodeTrack()); err != nil {
		return fmt.Errorf("play %q: %w", t.Title, err)
	}
	return nil
}

// advanceLocked moves to the next queued track. With repeat on the current
// track goes back to the end of the queue first. An exhausted queue stops
// the node and enters QueueEmpty, and so does a track the node refused.
func (s *VoiceSession) advanceLocked(ctx context.Context) error {
	if s.repeat && s.current != nil {
		s.queue.Enqueue(*s.current)
	}
	next, ok := s.queue.Pop()
	if !ok {
		s.current = nil
		nctx, cancel := s.m.nodeContext(ctx)
		defer cancel()
		err := s.m.node.Stop(nctx, s.guildID)
		s.queueEndLocked()
		if err != nil {
			return fmt.Errorf("stop: %w", err)
		}
		return nil
	}
	s.current = &next
	if err := s.playLocked(ctx, next); err != nil {
		// nothing is playing on the node, so the guild idles from here
		s.current = nil
		s.queueEndLocked()
		return err
	}
	return nil
}

func (s *VoiceSession) queueEndLocked() {
	s.current = nil
	s.paused = false
	s.state = StateQueueEmpty
	s.startIdleTimerLocked()
}

func (s *VoiceSession) startIdleTimerLocked() {
	s.cancelIdleTimerLocked()
	ctx, cancel := s.m.nodeContext(context.Background())
	wait := s.m.settings(ctx, s.guildID).idleTimeout
	cancel()
	if wait <= 0 {
		return
	}
	gen := s.idleGen
	s.idleTimer = time.AfterFunc(wait, func() { s.idleExpired(gen) })
}

// cancelIdleTimerLocked also invalidates a callback that already fired but
// has not taken the lock yet.
func (s *VoiceSession) cancelIdleTimerLocked() {
	s.idleGen++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *VoiceSession) idleExpired(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.idleGen {
		return
	}
	s.idleTimer = nil
	// queued tracks that never started do not count as playback
	if s.current != nil || s.state != StateQueueEmpty {
		return
	}

	s.state = StateDisconnecting
	if text := s.textChannelID; text != "" {
		name := s.m.voice.ChannelName(s.channelID)
		msg := fmt.Sprintf("Left **%s** because I am no longer playing anything.", name)
		if err := s.m.msg.SendMessage(text, msg); err != nil {
			slog.Warn("idle notice", "guildID", s.guildID, "err", err)
		}
	}
	s.textChannelID = ""
	slog.Info("idle disconnect", "guildID", s.guildID)
	s.teardownLocked(context.Background(), true)
}

// teardownLocked resets the session, destroys the node player and removes
// the session from the manager. leave also asks the platform to leave voice.
func (s *VoiceSession) teardownLocked(ctx context.Context, leave bool) {
	s.state = StateDisconnecting
	s.cancelIdleTimerLocked()
	s.queue.Clear()
	s.current = nil
	s.repeat = false
	s.paused = false
	s.volume = DefaultVolume

	ctx, cancel := s.m.nodeContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.m.node.Destroy(ctx, s.guildID); err != nil {
		slog.Warn("destroy node player", "guildID", s.guildID, "err", err)
	}
	if leave && s.connected {
		if err := s.m.voice.LeaveVoice(ctx, s.guildID); err != nil {
			slog.Warn("leave voice", "guildID", s.guildID, "err", err)
		}
	}
	s.connected = false
	s.channelID = ""
	s.closeLocked()
}
