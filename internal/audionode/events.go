package audionode

// Event is a node notification for a single guild. The set of
// implementations is closed: only this package can add one.
type Event interface {
	Guild() string
	event()
}

type TrackStart struct {
	GuildID string
	Track   Track
}

// TrackEnd is raised for every finished, replaced or stopped track.
type TrackEnd struct {
	GuildID string
	Track   Track
	// MayStartNext is true when the track ended on its own and the next
	// queued track should follow.
	MayStartNext bool
	Reason       string
}

type TrackStuck struct {
	GuildID string
	Track   Track
}

type TrackException struct {
	GuildID string
	Track   Track
	Message string
}

// QueueEnd is raised by the player when the last queued track is gone.
type QueueEnd struct {
	GuildID string
}

func (e TrackStart) Guild() string     { return e.GuildID }
func (e TrackEnd) Guild() string       { return e.GuildID }
func (e TrackStuck) Guild() string     { return e.GuildID }
func (e TrackException) Guild() string { return e.GuildID }
func (e QueueEnd) Guild() string       { return e.GuildID }

func (TrackStart) event()     {}
func (TrackEnd) event()       {}
func (TrackStuck) event()     {}
func (TrackException) event() {}
func (QueueEnd) event()       {}
