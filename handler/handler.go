// Package handler holds the completion and lifecycle callbacks invoked by
// transfer sessions.
package handler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/moyoez/gcomserver-go/api/models"
	"github.com/moyoez/gcomserver-go/notify"
	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// Handler contains callback functions for session events. Unset callbacks are skipped.
type Handler struct {
	onSessionStart func(info types.SessionInfo)
	onGroupBegin   func(info types.SessionInfo, expected int)
	onObjectStaged func(info types.SessionInfo, index int, slot types.Slot)
	onGroupReady   func(info types.SessionInfo, group types.Group) error
	onGroupCancel  func(info types.SessionInfo, staged int)
	onSessionEnd   func(info types.SessionInfo, err error)
}

// Ensure Handler implements types.HandlerInterface
var _ types.HandlerInterface = (*Handler)(nil)

func (h *Handler) OnSessionStart(info types.SessionInfo) {
	if h.onSessionStart != nil {
		h.onSessionStart(info)
	}
}

func (h *Handler) OnGroupBegin(info types.SessionInfo, expected int) {
	if h.onGroupBegin != nil {
		h.onGroupBegin(info, expected)
	}
}

func (h *Handler) OnObjectStaged(info types.SessionInfo, index int, slot types.Slot) {
	if h.onObjectStaged != nil {
		h.onObjectStaged(info, index, slot)
	}
}

// OnGroupReady implements types.HandlerInterface. It runs before the staged
// files are removed.
func (h *Handler) OnGroupReady(info types.SessionInfo, group types.Group) error {
	if h.onGroupReady != nil {
		return h.onGroupReady(info, group)
	}
	return nil
}

func (h *Handler) OnGroupCancel(info types.SessionInfo, staged int) {
	if h.onGroupCancel != nil {
		h.onGroupCancel(info, staged)
	}
}

func (h *Handler) OnSessionEnd(info types.SessionInfo, err error) {
	if h.onSessionEnd != nil {
		h.onSessionEnd(info, err)
	}
}

type Options struct {
	// OutputDir receives an archived copy of every completed group. Empty
	// disables archiving.
	OutputDir string
	// ArchiveTimeout bounds copying one group; zero means no limit.
	ArchiveTimeout time.Duration
	Notifier       *notify.Notifier
	Logger         *log.Logger
}

// NewDefaultHandler returns a Handler that logs every event, forwards it as a
// notification, records completed groups for the status API and archives
// them when an output directory is configured.
func NewDefaultHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = tool.NewLogger("handler")
	}
	send := func(n *types.Notification) {
		if err := opts.Notifier.Send(n); err != nil {
			logger.Debugf("[Notify] Failed to send %s notification: %v", n.Type, err)
		}
	}

	return &Handler{
		onSessionStart: func(info types.SessionInfo) {
			send(notify.SessionStart(info))
		},
		onGroupBegin: func(info types.SessionInfo, expected int) {
			send(notify.GroupBegin(info, expected))
		},
		onObjectStaged: func(info types.SessionInfo, index int, slot types.Slot) {
			logger.Debugf("[Handler] Session %s staged object %d: image %d, recon %d, type %d",
				info.ID, index, slot.Info.ImageNumber, slot.Info.Reconstruction, slot.Info.ImageType)
			send(notify.ObjectStaged(info, index, slot))
		},
		onGroupReady: func(info types.SessionInfo, group types.Group) error {
			summary := group.Summarize()
			var saved []string
			var archiveErr error
			if opts.OutputDir != "" {
				ctx := context.Background()
				if opts.ArchiveTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, opts.ArchiveTimeout)
					defer cancel()
				}
				result, err := Archive(ctx, opts.OutputDir, group)
				if err != nil {
					archiveErr = err
				} else {
					saved = result.Files
					summary.ArchiveDir = result.Dir
					logger.Infof("[Handler] Session %s group archived to %s (%d files)", info.ID, result.Dir, len(result.Files))
				}
			}
			models.RecordGroup(summary)
			send(notify.GroupReady(info, group, saved))
			return archiveErr
		},
		onGroupCancel: func(info types.SessionInfo, staged int) {
			send(notify.GroupCancel(info, staged))
		},
		onSessionEnd: func(info types.SessionInfo, err error) {
			send(notify.SessionEnd(info, err))
		},
	}
}
