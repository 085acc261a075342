package core

// PollLifecycle is the poll's state. A poll leaves Open only through an
// explicit moderator EndPoll; there is no duration timeout.
type PollLifecycle string

const (
	PollOpen   PollLifecycle = "open"
	PollClosed PollLifecycle = "closed"
)

// Poll is the single active poll of a room plus its vote bookkeeping.
type Poll struct {
	ID       string
	Question string
	Options  []string
	State    PollLifecycle

	counts map[string]int
	voters map[string]string // userID -> chosen option
}

// newPoll validates the definition and returns an Open poll.
func newPoll(id, question string, options []string) (*Poll, error) {
	if question == "" {
		return nil, validationError("poll question is required")
	}
	if len(options) < 2 {
		return nil, validationError("poll needs at least two options")
	}
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		if opt == "" {
			return nil, validationError("poll options must be non-empty")
		}
		if _, dup := seen[opt]; dup {
			return nil, validationError("poll options must be unique")
		}
		seen[opt] = struct{}{}
	}

	counts := make(map[string]int, len(options))
	for _, opt := range options {
		counts[opt] = 0
	}
	return &Poll{
		ID:       id,
		Question: question,
		Options:  append([]string(nil), options...),
		State:    PollOpen,
		counts:   counts,
		voters:   make(map[string]string),
	}, nil
}

// vote records a single vote per user. A second vote from the same user is
// rejected and leaves the tally untouched.
func (p *Poll) vote(userID, option string) error {
	if _, known := p.counts[option]; !known {
		return validationError("unknown poll option")
	}
	if _, voted := p.voters[userID]; voted {
		return conflictError("user already voted")
	}
	p.voters[userID] = option
	p.counts[option]++
	return nil
}

// PollView is the broadcast/snapshot projection of a poll.
type PollView struct {
	ID       string         `json:"id"`
	Question string         `json:"question"`
	Options  []string       `json:"options"`
	State    PollLifecycle  `json:"state"`
	Votes    map[string]int `json:"votes"`
}

func (p *Poll) view() *PollView {
	votes := make(map[string]int, len(p.counts))
	for opt, n := range p.counts {
		votes[opt] = n
	}
	return &PollView{
		ID:       p.ID,
		Question: p.Question,
		Options:  append([]string(nil), p.Options...),
		State:    p.State,
		Votes:    votes,
	}
}
