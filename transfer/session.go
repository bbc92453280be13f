package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/moyoez/gcomserver-go/codec"
	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// ErrInternal marks a broken invariant inside the session, such as staging
// into a slot out of order.
var ErrInternal = errors.New("internal session fault")

// Codec reads and writes protocol messages and raw data objects.
type Codec interface {
	ReadMessage(r io.Reader) (types.Command, types.ElementSet, error)
	WriteMessage(w io.Writer, cmd types.Command, elems types.ElementSet) error
	ReadRawObject(r io.Reader) ([]byte, types.ElementSet, error)
}

// Stager persists received objects and removes them again.
type Stager interface {
	Persist(raw []byte) (string, error)
	Remove(paths ...string) error
}

type Option func(*Session)

func WithHandler(h types.HandlerInterface) Option {
	return func(s *Session) { s.handler = h }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithCodec(c Codec) Option {
	return func(s *Session) { s.codec = c }
}

func WithStager(st Stager) Option {
	return func(s *Session) { s.stager = st }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) { s.info.ID = id }
}

// Session drives the protocol for one connection. Commands are handled one
// at a time on the goroutine calling Run; the mutex only guards the fields
// read by Status.
type Session struct {
	conn    io.ReadWriteCloser
	info    types.SessionInfo
	codec   Codec
	stager  Stager
	handler types.HandlerInterface
	log     *log.Logger
	tag     string

	mu      sync.Mutex
	state   types.State
	tracker *Tracker
	beganAt time.Time
	groups  int
}

// NewSession prepares a session over conn. A stager is required before Run.
func NewSession(conn io.ReadWriteCloser, remote string, opts ...Option) *Session {
	s := &Session{
		conn:  conn,
		info:  types.SessionInfo{ID: tool.NewSessionID(), Remote: remote, StartedAt: time.Now()},
		codec: codec.New(),
		state: types.StateWaitingForGroup,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handler == nil {
		s.handler = NopHandler{}
	}
	if s.log == nil {
		s.log = tool.DefaultLogger
	}
	s.tag = "[Session " + s.info.ID + "]"
	return s
}

func (s *Session) Info() types.SessionInfo { return s.info }

func (s *Session) State() types.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot for the status API.
func (s *Session) Status() types.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := types.SessionStatus{SessionInfo: s.info, State: s.state.String(), Groups: s.groups}
	if s.tracker != nil {
		st.Expected = s.tracker.Expected()
		st.Received = s.tracker.Populated()
	}
	return st
}

// Run serves commands until the peer disconnects, a command is rejected or
// ctx is cancelled. A clean end of input, or a cancellation, while no group
// is open returns nil. The connection is closed and any open group's staged
// files are removed on every return path.
func (s *Session) Run(ctx context.Context) (err error) {
	if s.stager == nil {
		_ = s.conn.Close()
		return fmt.Errorf("%w: session has no stager", ErrInternal)
	}
	var openAtCancel atomic.Bool
	cancelled := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		openAtCancel.Store(s.groupOpen())
		close(cancelled)
		_ = s.conn.Close()
	})

	s.log.Infof("%s Started for %s", s.tag, s.info.Remote)
	s.handler.OnSessionStart(s.info)
	defer func() {
		if stop() {
			openAtCancel.Store(s.groupOpen())
		} else if ctx.Err() != nil {
			<-cancelled
		}
		s.teardown()
		if cerr := s.conn.Close(); cerr != nil {
			s.log.Debugf("%s Close connection: %v", s.tag, cerr)
		}
		// a rejected command keeps its own outcome even if ctx ends meanwhile
		if ctx.Err() != nil && !errors.Is(err, types.ErrProtocol) && !errors.Is(err, ErrInternal) {
			if openAtCancel.Load() {
				err = fmt.Errorf("session interrupted: %w", ctx.Err())
			} else {
				err = nil
			}
		}
		code, msg := tool.ExitStatus(err)
		if code == tool.ExitSuccess {
			s.log.Infof("%s %s", s.tag, msg)
		} else {
			s.log.Errorf("%s %s (%v)", s.tag, msg, err)
		}
		s.handler.OnSessionEnd(s.info, err)
	}()

	for {
		cmd, req, rerr := s.codec.ReadMessage(s.conn)
		if rerr != nil {
			if errors.Is(rerr, types.ErrEndOfInput) {
				if s.State().GroupOpen() {
					return fmt.Errorf("%w: connection closed during group", types.ErrIO)
				}
				return nil
			}
			return rerr
		}
		if err := s.handle(cmd, req); err != nil {
			return err
		}
	}
}

// handle runs one command/reply cycle, including the data object read that
// follows an acknowledged SEND. A non-nil error means the session is
// disconnecting; no reply has been sent for the offending command.
func (s *Session) handle(cmd types.Command, req types.ElementSet) error {
	state := s.State()
	s.log.Debugf("%s Received %s in %s", s.tag, cmd, state)
	switch {
	case cmd == types.CommandCancel:
		return s.cancel(req)
	case cmd == types.CommandBeginGroup && state == types.StateWaitingForGroup:
		return s.beginGroup(req)
	case cmd == types.CommandReady && state == types.StateWaitingForObject:
		s.setState(types.StateReadyForObject)
		return s.reply(cmd, req, 0)
	case cmd == types.CommandSend && (state == types.StateWaitingForObject || state == types.StateReadyForObject):
		return s.send(req)
	case cmd == types.CommandEndGroup && state == types.StateEndOfGroup:
		return s.endGroup(req)
	case cmd == types.CommandUnknown:
		return s.disconnect(fmt.Errorf("%w: unrecognized command", types.ErrProtocol))
	default:
		return s.disconnect(fmt.Errorf("%w: %s not allowed in %s", types.ErrProtocol, cmd, state))
	}
}

func (s *Session) beginGroup(req types.ElementSet) error {
	n, err := codec.GroupSize(req)
	if err != nil {
		return s.disconnect(err)
	}
	tracker, err := NewTracker(n)
	if err != nil {
		return s.disconnect(fmt.Errorf("%w: %w", types.ErrProtocol, err))
	}
	s.mu.Lock()
	s.tracker = tracker
	s.beganAt = time.Now()
	s.state = types.StateWaitingForObject
	s.mu.Unlock()

	s.log.Infof("%s Copying a group of %d files", s.tag, n)
	s.handler.OnGroupBegin(s.info, n)
	return s.reply(types.CommandBeginGroup, req, n)
}

// send acknowledges SEND and then reads and stages the data object that
// follows it on the stream.
func (s *Session) send(req types.ElementSet) error {
	s.mu.Lock()
	index, last, err := s.tracker.Advance()
	if err == nil {
		if last {
			s.state = types.StateEndOfGroup
		} else {
			s.state = types.StateWaitingForObject
		}
	}
	s.mu.Unlock()
	if err != nil {
		return s.disconnect(fmt.Errorf("%w: %w", ErrInternal, err))
	}

	if err := s.reply(types.CommandSend, req, 0); err != nil {
		return err
	}

	raw, elems, err := s.codec.ReadRawObject(s.conn)
	if err != nil {
		if errors.Is(err, types.ErrEndOfInput) {
			err = fmt.Errorf("%w: connection closed before data object", types.ErrIO)
		}
		return s.disconnect(err)
	}
	s.log.Debugf("%s Received data object %d: %d bytes, %d elements", s.tag, index, len(raw), len(elems))

	path, err := s.stager.Persist(raw)
	if err != nil {
		return s.disconnect(err)
	}
	info := codec.DescribeObject(elems)
	info.Size = int64(len(raw))
	info.Digest = tool.ObjectDigest(raw)

	s.mu.Lock()
	err = s.tracker.Stage(index, path, info)
	s.mu.Unlock()
	if err != nil {
		if rmErr := s.stager.Remove(path); rmErr != nil {
			s.log.Warnf("%s Failed to remove unstaged file %s: %v", s.tag, path, rmErr)
		}
		return s.disconnect(fmt.Errorf("%w: %w", ErrInternal, err))
	}
	s.log.Infof("%s Copied %s (slot %d)", s.tag, path, index)
	s.handler.OnObjectStaged(s.info, index, types.Slot{StagedPath: path, Info: info})
	return nil
}

// endGroup hands the completed group to the handler, removes the staged
// files and only then acknowledges END-GROUP.
func (s *Session) endGroup(req types.ElementSet) error {
	s.mu.Lock()
	group := types.Group{
		ID:         tool.NewGroupID(),
		SessionID:  s.info.ID,
		Remote:     s.info.Remote,
		Slots:      s.tracker.Slots(),
		BeganAt:    s.beganAt,
		ReceivedAt: time.Now(),
	}
	s.mu.Unlock()

	s.log.Infof("%s Finished copying %d files", s.tag, len(group.Slots))
	if err := s.handler.OnGroupReady(s.info, group); err != nil {
		s.log.Errorf("%s Completion handler failed: %v", s.tag, err)
	}
	s.releaseGroup()

	s.mu.Lock()
	s.groups++
	s.state = types.StateWaitingForGroup
	s.mu.Unlock()
	return s.reply(types.CommandEndGroup, req, 0)
}

func (s *Session) cancel(req types.ElementSet) error {
	s.mu.Lock()
	staged := 0
	if s.tracker != nil {
		staged = s.tracker.Populated()
	}
	open := s.state.GroupOpen()
	s.mu.Unlock()

	if open {
		s.log.Infof("%s Group cancelled after %d objects", s.tag, staged)
		s.releaseGroup()
		s.handler.OnGroupCancel(s.info, staged)
	}
	s.setState(types.StateWaitingForGroup)
	return s.reply(types.CommandCancel, req, 0)
}

// reply acknowledges req; count is echoed only by BEGIN-GROUP.
func (s *Session) reply(cmd types.Command, req types.ElementSet, count int) error {
	elems, err := codec.Reply(cmd, req, count)
	if err != nil {
		return s.disconnect(err)
	}
	if err := s.codec.WriteMessage(s.conn, cmd, elems); err != nil {
		return s.disconnect(err)
	}
	return nil
}

func (s *Session) disconnect(err error) error {
	s.setState(types.StateDisconnecting)
	return err
}

func (s *Session) setState(state types.State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// releaseGroup removes the staged files of the open group and drops the
// tracker. It does nothing when no group is open.
func (s *Session) releaseGroup() {
	s.mu.Lock()
	tracker := s.tracker
	s.tracker = nil
	s.mu.Unlock()
	if tracker == nil {
		return
	}
	if err := s.stager.Remove(tracker.StagedPaths()...); err != nil {
		s.log.Warnf("%s Failed to remove staged files: %v", s.tag, err)
	}
	tracker.Clear()
}

// groupOpen reports whether a tracker, and so a group, is still held.
func (s *Session) groupOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker != nil
}

func (s *Session) teardown() {
	s.mu.Lock()
	open := s.tracker != nil
	staged := 0
	if open {
		staged = s.tracker.Populated()
	}
	s.mu.Unlock()
	if !open {
		return
	}
	s.log.Warnf("%s Discarding incomplete group with %d staged objects", s.tag, staged)
	s.releaseGroup()
}

// NopHandler ignores every session event.
type NopHandler struct{}

func (NopHandler) OnSessionStart(types.SessionInfo) {}
func (NopHandler) OnGroupBegin(types.SessionInfo, int) {}
func (NopHandler) OnObjectStaged(types.SessionInfo, int, types.Slot) {}
func (NopHandler) OnGroupReady(types.SessionInfo, types.Group) error { return nil }
func (NopHandler) OnGroupCancel(types.SessionInfo, int) {}
func (NopHandler) OnSessionEnd(types.SessionInfo, error) {}
