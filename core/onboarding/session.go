package onboarding

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// Session owns the state of one onboarding run. Events are applied one at a time;
// only the completion call runs outside the lock.
type Session struct {
	mu    sync.Mutex
	state State
	coord *Coordinator
}

func NewSession(token string, coord *Coordinator) *Session {
	return &Session{state: NewState(token), coord: coord}
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Session) apply(f func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = f(s.state)
	return s.state.clone()
}

func (s *Session) Next() State { return s.apply(State.Next) }
func (s *Session) Prev() State { return s.apply(State.Prev) }

func (s *Session) SetSchoolInfo(name, motto, address, logo string) State {
	return s.apply(func(st State) State { return st.SetSchoolInfo(name, motto, address, logo) })
}

func (s *Session) AddTeacher(email string) State {
	return s.apply(func(st State) State { return st.AddTeacher(email) })
}

func (s *Session) RemoveTeacher(email string) State {
	return s.apply(func(st State) State { return st.RemoveTeacher(email) })
}

func (s *Session) AddStudent(name string) State {
	return s.apply(func(st State) State { return st.AddStudent(name) })
}

func (s *Session) RemoveStudent(name string) State {
	return s.apply(func(st State) State { return st.RemoveStudent(name) })
}

func (s *Session) DismissNotification() State { return s.apply(State.DismissNotification) }

// Skip advances one step, or submits the draft when already on the last step.
func (s *Session) Skip(ctx context.Context) (State, error) {
	s.mu.Lock()
	next, submit := s.state.Skip()
	if !submit {
		s.state = next
		st := s.state.clone()
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()
	return s.Submit(ctx)
}

// Submit hands the draft to the coordinator. It fails with ErrSubmissionInFlight while a
// previous submission is still waiting for its answer.
func (s *Session) Submit(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return s.State(), ErrSubmissionInFlight
	}
	s.state.Loading = true
	draft, token := s.state.Draft.clone(), s.state.Token
	s.mu.Unlock()

	n := s.coord.SubmitOnboarding(ctx, draft, token)

	return s.apply(func(st State) State {
		st.Loading = false
		st.Notification = n
		return st
	}), nil
}
