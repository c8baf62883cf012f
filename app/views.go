package app

import (
	"sync"

	"github.com/JP-N/mumundo-web/models"
	"github.com/JP-N/mumundo-web/view"
)

// pageState is the optimistic view state one browser session carries: the
// rating control for the playlist currently open, visibility toggles for the
// profile's playlist list, and the report table an admin is acting on.
type pageState struct {
	mu         sync.Mutex
	playlistID string
	rating     *view.RatingControl
	visibility map[string]*view.VisibilityToggle
	reports    []models.Report
}

type viewRegistry struct {
	mu    sync.Mutex
	pages map[string]*pageState
}

func newViewRegistry() *viewRegistry {
	return &viewRegistry{pages: make(map[string]*pageState)}
}

func (r *viewRegistry) page(sessionID string) *pageState {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, ok := r.pages[sessionID]
	if !ok {
		ps = &pageState{visibility: make(map[string]*view.VisibilityToggle)}
		r.pages[sessionID] = ps
	}

	return ps
}

// Drop forgets everything a session was looking at. Called on logout so no
// stale optimistic state survives a sign-in change.
func (r *viewRegistry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.pages, sessionID)
	r.mu.Unlock()
}

// BindPlaylist points the session at a playlist detail view, reconciling the
// rating control against the server snapshot. Navigating to a different
// playlist invalidates the previous control so any result still in flight is
// discarded instead of mutating an abandoned view.
func (ps *pageState) BindPlaylist(playlistID string, snap *models.Ratings) *view.RatingControl {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.rating != nil && ps.playlistID != playlistID {
		ps.rating.Invalidate()
		ps.rating = nil
	}

	ps.playlistID = playlistID
	ps.rating = view.NewRatingControl(snap.Likes, snap.Dislikes, snap.UserRating)

	return ps.rating
}

// Rating returns the bound control, or nil when the session never opened the
// playlist in question.
func (ps *pageState) Rating(playlistID string) *view.RatingControl {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.playlistID != playlistID {
		return nil
	}

	return ps.rating
}

// Visibility returns the toggle for one of the user's playlists, seeding it
// from the snapshot the page rendered with.
func (ps *pageState) Visibility(playlistID string, public bool) *view.VisibilityToggle {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	vt, ok := ps.visibility[playlistID]
	if !ok {
		vt = view.NewVisibilityToggle(public)
		ps.visibility[playlistID] = vt
	}

	return vt
}

func (ps *pageState) SetReports(reports []models.Report) {
	ps.mu.Lock()
	ps.reports = reports
	ps.mu.Unlock()
}

// Report looks up a report in the table the admin is viewing. The bool is
// false when the dashboard was never loaded or the id is unknown.
func (ps *pageState) Report(reportID string) (*models.Report, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i := range ps.reports {
		if ps.reports[i].ID == reportID {
			return &ps.reports[i], true
		}
	}

	return nil, false
}
