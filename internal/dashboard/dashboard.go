// Package dashboard is the read-and-vote view over a project's feedback. It
// loads once per project, filters locally and remembers votes in a ledger so
// each client votes at most once per item.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"squashfeature/internal/client"
	"squashfeature/internal/ledger"
	"squashfeature/internal/models"
)

type State int

const (
	Loading State = iota
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	}
	return "unknown"
}

type Filter string

const (
	FilterAll     Filter = "all"
	FilterFeature Filter = "feature"
	FilterBug     Filter = "bug"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case FilterAll, FilterFeature, FilterBug:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
}

func (f Filter) matches(t models.FeedbackType) bool {
	return f == FilterAll || string(f) == string(t)
}

const (
	LoadErrorMessage = "Failed to load feedback"
	VoteErrorMessage = "Failed to vote"
)

var (
	ErrNotLoaded     = errors.New("dashboard is not loaded")
	ErrVoteInFlight  = errors.New("a vote for this item is already in progress")
	ErrUnknownItem   = errors.New("item is not on this dashboard")
	ErrInvalidFilter = errors.New("filter must be all, feature or bug")
)

// API is the part of the feedback client the dashboard needs.
type API interface {
	FetchDashboard(ctx context.Context, projectID string) (*client.Dashboard, error)
	Vote(ctx context.Context, projectID, itemID string) (int64, error)
}

// Counts is the number of items behind each filter tab.
type Counts struct {
	All     int
	Feature int
	Bug     int
}

type Dashboard struct {
	api    API
	ledger ledger.Store

	mu         sync.Mutex
	projectID  string
	generation int
	state      State
	project    models.ProjectSummary
	items      []client.Item
	voted      ledger.Set
	inFlight   map[string]bool
	filter     Filter
	loadErr    string
	voteErr    string
}

func New(api API, store ledger.Store, projectID string) *Dashboard {
	return &Dashboard{
		api:       api,
		ledger:    store,
		projectID: projectID,
		voted:     ledger.NewSet(),
		inFlight:  map[string]bool{},
		filter:    FilterAll,
	}
}

// Mount fetches the project's items and loads its vote ledger, once each.
// A failed fetch leaves the dashboard in Error until the next Mount.
func (d *Dashboard) Mount(ctx context.Context) error {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	projectID := d.projectID
	d.state = Loading
	d.loadErr = ""
	d.mu.Unlock()

	data, err := d.api.FetchDashboard(ctx, projectID)

	voted, lerr := d.ledger.Load(projectID)
	if lerr != nil {
		log.Printf("[Dashboard] could not load vote ledger for %s: %v", projectID, lerr)
		voted = ledger.NewSet()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		// superseded by a later mount
		return nil
	}
	if err != nil {
		d.state = Error
		d.loadErr = client.UserMessage(err, LoadErrorMessage)
		return err
	}
	d.project = data.Project
	d.items = append([]client.Item(nil), data.Requests...)
	// votes recorded while this load was running are not in the ledger snapshot
	for id := range d.voted {
		voted.Add(id)
	}
	d.voted = voted
	d.state = Loaded
	return nil
}

// SetProject switches to another project and remounts. The same id is a no-op.
func (d *Dashboard) SetProject(ctx context.Context, projectID string) error {
	d.mu.Lock()
	if projectID == d.projectID {
		d.mu.Unlock()
		return nil
	}
	d.projectID = projectID
	d.project = models.ProjectSummary{}
	d.items = nil
	d.voted = ledger.NewSet()
	d.inFlight = map[string]bool{}
	d.voteErr = ""
	d.mu.Unlock()

	return d.Mount(ctx)
}

func (d *Dashboard) ProjectID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.projectID
}

func (d *Dashboard) Project() models.ProjectSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.project
}

func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err is the load error shown in place of the list.
func (d *Dashboard) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadErr
}

// VoteErr is the message from the last failed vote, cleared by the next vote.
func (d *Dashboard) VoteErr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voteErr
}

func (d *Dashboard) Filter() Filter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter
}

// SetFilter changes the visible tab. It never fetches.
func (d *Dashboard) SetFilter(f Filter) error {
	if _, err := ParseFilter(string(f)); err != nil {
		return err
	}
	d.mu.Lock()
	d.filter = f
	d.mu.Unlock()
	return nil
}

// Visible returns the items matching the current filter in server order.
func (d *Dashboard) Visible() []client.Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]client.Item, 0, len(d.items))
	for _, it := range d.items {
		if d.filter.matches(it.Type) {
			out = append(out, it)
		}
	}
	return out
}

func (d *Dashboard) Counts() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := Counts{All: len(d.items)}
	for _, it := range d.items {
		switch it.Type {
		case models.TypeFeature:
			c.Feature++
		case models.TypeBug:
			c.Bug++
		}
	}
	return c
}

func (d *Dashboard) HasVoted(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voted.Has(id)
}

// CanVote reports whether the vote control for id should be enabled.
func (d *Dashboard) CanVote(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == Loaded && !d.voted.Has(id) && !d.inFlight[id] && d.indexOf(id) >= 0
}

// Vote upvotes an item once. Voting again for a recorded id does nothing.
// On success the server's count replaces the local one and the id is merged
// into the ledger. On failure nothing changes and VoteErr is set.
func (d *Dashboard) Vote(ctx context.Context, id string) error {
	d.mu.Lock()
	switch {
	case d.state != Loaded:
		d.mu.Unlock()
		return ErrNotLoaded
	case d.voted.Has(id):
		d.mu.Unlock()
		return nil
	case d.inFlight[id]:
		d.mu.Unlock()
		return ErrVoteInFlight
	case d.indexOf(id) < 0:
		d.mu.Unlock()
		return ErrUnknownItem
	}
	d.inFlight[id] = true
	d.voteErr = ""
	projectID := d.projectID
	d.mu.Unlock()

	votes, err := d.api.Vote(ctx, projectID, id)

	var merged ledger.Set
	if err == nil {
		var lerr error
		merged, lerr = d.ledger.Save(projectID, ledger.NewSet(id))
		if lerr != nil {
			log.Printf("[Dashboard] could not save vote ledger for %s: %v", projectID, lerr)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if projectID != d.projectID {
		// SetProject already reset the vote state
		return err
	}
	delete(d.inFlight, id)
	if err != nil {
		d.voteErr = client.UserMessage(err, VoteErrorMessage)
		return err
	}

	// A Mount that ran meanwhile may have replaced items; look the id up again.
	if i := d.indexOf(id); i >= 0 {
		d.items[i].Votes = votes
	}
	for other := range merged {
		d.voted.Add(other)
	}
	d.voted.Add(id)
	return nil
}

// indexOf must be called with mu held.
func (d *Dashboard) indexOf(id string) int {
	for i := range d.items {
		if d.items[i].ID == id {
			return i
		}
	}
	return -1
}
