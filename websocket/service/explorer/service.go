package explorer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	nav "pinas/explorer"
	"pinas/metrics"
	ws "pinas/websocket"
)

const (
	actionState     = "state"
	actionNavigate  = "navigate"
	actionUp        = "up"
	actionHome      = "home"
	actionActivate  = "activate"
	actionRefresh   = "refresh"
	actionQuery     = "query"
	actionToggle    = "toggle"
	actionSelectAll = "select_all"
	actionClear     = "clear"
	actionMkdir     = "mkdir"
	actionRename    = "rename"
	actionDelete    = "delete"
	actionUpload    = "upload"
	actionDownload  = "download"
)

type pathData struct {
	Path string `json:"path"`
}
type mkdirData struct {
	Name string `json:"name"`
}
type renameData struct {
	Path    string `json:"path"`
	NewName string `json:"newName"`
}
type pathsData struct {
	Paths []string `json:"paths"`
}
type uploadData struct {
	Sources []string `json:"sources"`
}

// ExplorerService exposes one Coordinator over the websocket. Requests are
// answered under their own id and action; every state change is pushed as
// an unsolicited "state" message.
type ExplorerService struct {
	conn  ws.JSONWriter
	coord *nav.Coordinator

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup

	log zerolog.Logger
}

func NewService(coord *nav.Coordinator, log zerolog.Logger) *ExplorerService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExplorerService{
		coord:  coord,
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
}

func (s *ExplorerService) Name() string {
	return "explorer"
}

func (s *ExplorerService) Register(conn ws.JSONWriter) {
	s.conn = conn
	s.unsubscribe = s.coord.Subscribe(s.pushState)
}

// Load lists the mount root for the first time. Its outcome reaches the
// client as pushed state.
func (s *ExplorerService) Load() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.coord.Refresh(s.ctx); err != nil {
			s.log.Warn().Err(err).Msg("initial listing failed")
		}
	}()
}

// Cleanup cancels the operations still running and waits for them. The
// coordinator is dropped together with the session, so nothing observes the
// state an aborted call leaves behind.
func (s *ExplorerService) Cleanup(err error) {
	s.cancel()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.wg.Wait()
}

func (s *ExplorerService) HandleTextMessage(id, action string, data json.RawMessage) {
	switch action {
	case actionState:
		s.reply(id, action, s.coord.State(), nil)
	case actionQuery:
		q, err := decode[nav.Query](data)
		if err == nil {
			err = s.coord.SetQuery(q)
		}
		s.reply(id, action, nil, err)
	case actionToggle:
		d, err := decode[pathData](data)
		if err == nil {
			err = s.coord.Toggle(d.Path)
		}
		s.reply(id, action, nil, err)
	case actionSelectAll:
		s.coord.SelectAll()
		s.reply(id, action, nil, nil)
	case actionClear:
		s.coord.ClearSelection()
		s.reply(id, action, nil, nil)

	case actionNavigate:
		d, err := decode[pathData](data)
		s.async(id, action, err, func(ctx context.Context) (any, error) {
			return nil, s.coord.Navigate(ctx, d.Path)
		})
	case actionUp:
		s.async(id, action, nil, func(ctx context.Context) (any, error) {
			return nil, s.coord.Up(ctx)
		})
	case actionHome:
		s.async(id, action, nil, func(ctx context.Context) (any, error) {
			return nil, s.coord.Home(ctx)
		})
	case actionRefresh:
		s.async(id, action, nil, func(ctx context.Context) (any, error) {
			return nil, s.coord.Refresh(ctx)
		})
	case actionActivate:
		d, err := decode[pathData](data)
		s.async(id, action, err, func(ctx context.Context) (any, error) {
			return nil, s.coord.Activate(ctx, d.Path)
		})
	case actionMkdir:
		d, err := decode[mkdirData](data)
		s.async(id, action, err, func(ctx context.Context) (any, error) {
			return nil, s.coord.CreateDirectory(ctx, d.Name)
		})
	case actionRename:
		d, err := decode[renameData](data)
		s.async(id, action, err, func(ctx context.Context) (any, error) {
			entries, err := s.listed([]string{d.Path})
			if err != nil {
				return nil, err
			}
			return nil, s.coord.Rename(ctx, entries[0], d.NewName)
		})
	case actionDelete:
		d, err := decode[pathsData](data)
		s.async(id, action, err, func(ctx context.Context) (any, error) {
			if len(d.Paths) == 0 {
				return s.batch(s.coord.DeleteSelection(ctx))
			}
			entries, err := s.listed(d.Paths)
			if err != nil {
				return nil, err
			}
			return s.batch(s.coord.DeleteMany(ctx, entries))
		})
	case actionUpload:
		d, err := decode[uploadData](data)
		s.async(id, action, err, func(ctx context.Context) (any, error) {
			picked := nav.SourceFunc(func(context.Context) ([]string, error) {
				if len(d.Sources) == 0 {
					return nil, nav.ErrUserCancelled
				}
				return d.Sources, nil
			})
			return s.batch(s.coord.UploadFromPicker(ctx, picked))
		})
	case actionDownload:
		d, err := decode[pathsData](data)
		s.async(id, action, err, func(ctx context.Context) (any, error) {
			if len(d.Paths) == 0 {
				return s.batch(s.coord.DownloadSelection(ctx))
			}
			return s.batch(s.coord.DownloadMany(ctx, d.Paths))
		})

	default:
		s.reply(id, action, nil, errors.Errorf("unknown action %q", action))
	}
}

// async runs a remote operation off the dispatch goroutine. A payload that
// failed to decode is answered right away.
func (s *ExplorerService) async(id, action string, decodeErr error, fn func(ctx context.Context) (any, error)) {
	if decodeErr != nil {
		s.reply(id, action, nil, decodeErr)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := fn(s.ctx)
		s.reply(id, action, result, err)
	}()
}

func (s *ExplorerService) batch(report *nav.BatchReport, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	metrics.RecordBatch(string(report.Op), len(report.Succeeded), len(report.Skipped), len(report.Failures))
	return report, nil
}

// listed resolves paths against the current listing and fails if any of
// them is not in it.
func (s *ExplorerService) listed(paths []string) ([]nav.Entry, error) {
	entries := s.coord.Lookup(paths)
	if len(entries) != len(paths) {
		return nil, errors.Wrap(nav.ErrInvalidPath, "not in the current listing")
	}
	return entries, nil
}

func (s *ExplorerService) pushState(state nav.State) {
	s.reply("", actionState, state, nil)
}

func (s *ExplorerService) reply(id, action string, result any, err error) {
	msg := &ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  action,
	}

	if result != nil {
		data, merr := json.Marshal(result)
		if merr != nil {
			s.log.Error().Err(merr).Str("action", action).Msg("error marshalling reply")
			err = merr
		} else {
			msg.Data = data
		}
	}
	if err != nil {
		s.log.Debug().Err(err).Str("id", id).Str("action", action).Msg("request failed")
		msg.Error = err.Error()
	}

	s.conn.WriteJSON(msg)
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Wrap(nav.ErrInvalidInput, err.Error())
	}
	return v, nil
}
