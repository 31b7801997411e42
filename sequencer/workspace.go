package sequencer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"golang.org/x/text/unicode/norm"

	"go-pianoroll/debug"
	"go-pianoroll/storage"
)

// MaxWorkspaces is the workspace limit
const MaxWorkspaces = 10

var (
	ErrWorkspaceLimit = fault.New("workspace limit", fmsg.WithDesc("workspace limit",
		fmt.Sprintf("You can have at most %d workspaces.", MaxWorkspaces)))
	ErrLastWorkspace = fault.New("last workspace", fmsg.WithDesc("last workspace",
		"The last workspace can't be deleted."))
	ErrBlankName = fault.New("blank name", fmsg.WithDesc("blank name",
		"Workspace names can't be blank."))
	ErrNoWorkspace = errors.New("no such workspace")
)

// session is the live editing context the workspace list saves from and
// loads into. Methods run with the manager lock held.
type session interface {
	Stop()
	Capture() *State
	Restore(*State)
}

// Workspaces is the bounded list of named snapshots plus the current
// index. It is the only writer of the persisted document.
type Workspaces struct {
	store   storage.Store
	session session
	list    []Workspace
	current int
}

func newWorkspaces(store storage.Store, s session) *Workspaces {
	return &Workspaces{store: store, session: s}
}

// load reads the persisted list. Missing, unparsable or empty data yields
// a single default workspace; the error is returned for logging only.
func (w *Workspaces) load() error {
	w.list = nil
	w.current = 0

	var err error
	raw, gerr := w.store.Get(StoreKey)
	switch {
	case errors.Is(gerr, storage.ErrNotFound):
	case gerr != nil:
		err = fmt.Errorf("read workspaces: %w", gerr)
	default:
		var list []Workspace
		if uerr := json.Unmarshal([]byte(raw), &list); uerr != nil {
			err = fmt.Errorf("parse workspaces: %w", uerr)
		} else {
			w.list = list
		}
	}

	if len(w.list) > MaxWorkspaces {
		w.list = w.list[:MaxWorkspaces]
	}
	if len(w.list) == 0 {
		w.list = []Workspace{{Name: defaultName(0)}}
	}
	w.session.Restore(w.list[0].State)
	return err
}

func defaultName(i int) string {
	return fmt.Sprintf("Workspace %d", i+1)
}

// Len returns the number of workspaces
func (w *Workspaces) Len() int { return len(w.list) }

// Current returns the current index
func (w *Workspaces) Current() int { return w.current }

// Names returns the workspace names in order
func (w *Workspaces) Names() []string {
	out := make([]string, len(w.list))
	for i, ws := range w.list {
		out[i] = ws.Name
	}
	return out
}

// Get returns a copy of workspace i; the current one carries the live grid.
func (w *Workspaces) Get(i int) (Workspace, error) {
	if i < 0 || i >= len(w.list) {
		return Workspace{}, ErrNoWorkspace
	}
	ws := w.list[i]
	if i == w.current {
		ws.State = w.session.Capture()
	}
	return ws, nil
}

// persist captures the live grid into the current workspace and writes the
// whole list as one JSON document.
func (w *Workspaces) persist() error {
	w.list[w.current].State = w.session.Capture()
	data, err := json.Marshal(w.list)
	if err != nil {
		return err
	}
	if err := w.store.Set(StoreKey, string(data)); err != nil {
		return fmt.Errorf("save workspaces: %w", err)
	}
	return nil
}

// Create appends an empty workspace and switches to it
func (w *Workspaces) Create() error {
	if len(w.list) >= MaxWorkspaces {
		return ErrWorkspaceLimit
	}
	w.list = append(w.list, Workspace{Name: defaultName(len(w.list))})
	return w.SwitchTo(len(w.list) - 1)
}

// SwitchTo stops playback, saves the outgoing grid and loads workspace i
func (w *Workspaces) SwitchTo(i int) error {
	if i < 0 || i >= len(w.list) {
		return ErrNoWorkspace
	}
	w.session.Stop()
	err := w.persist()
	w.current = i
	w.session.Restore(w.list[i].State)
	debug.For("workspace").Info("switched", "index", i, "name", w.list[i].Name)
	return err
}

// Rename trims and NFC-normalises name; blank names are rejected
func (w *Workspaces) Rename(i int, name string) error {
	if i < 0 || i >= len(w.list) {
		return ErrNoWorkspace
	}
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ErrBlankName
	}
	w.list[i].Name = name
	return w.persist()
}

// Clear empties workspace i, keeping its name and, if it is current, the
// live settings
func (w *Workspaces) Clear(i int) error {
	if i < 0 || i >= len(w.list) {
		return ErrNoWorkspace
	}
	w.session.Stop()
	w.list[i].State = nil
	if i == w.current {
		w.session.Restore(nil)
	}
	return w.persist()
}

// Delete removes workspace i. The current workspace keeps its identity when
// an earlier one is removed; deleting the current one selects the one that
// slid into its place, or the new last one.
func (w *Workspaces) Delete(i int) error {
	if i < 0 || i >= len(w.list) {
		return ErrNoWorkspace
	}
	if len(w.list) <= 1 {
		return ErrLastWorkspace
	}
	w.session.Stop()
	if i != w.current {
		w.list[w.current].State = w.session.Capture()
	}
	w.list = append(w.list[:i], w.list[i+1:]...)

	switch {
	case i < w.current:
		w.current--
	case i == w.current:
		if w.current > len(w.list)-1 {
			w.current = len(w.list) - 1
		}
		w.session.Restore(w.list[w.current].State)
	}
	return w.persist()
}
