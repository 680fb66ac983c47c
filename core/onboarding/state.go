// Package onboarding drives the three steps a school owner goes through after confirming their email:
// school details, teachers, students. State transitions are pure; Session adds the
// single in-flight submission guarantee on top of them.
package onboarding

import "strings"

type Step int

const (
	StepSchoolInfo Step = iota + 1
	StepTeachers
	StepStudents

	FirstStep = StepSchoolInfo
	LastStep  = StepStudents
)

func (s Step) String() string {
	switch s {
	case StepSchoolInfo:
		return "school information"
	case StepTeachers:
		return "teachers"
	case StepStudents:
		return "students"
	default:
		return "unknown"
	}
}

// Draft is the school data accumulated across steps. It survives failed submissions.
type Draft struct {
	SchoolName string
	Motto      string
	Address    string
	Logo       string
	Teachers   []string // unique emails, insertion order
	Students   []string // unique full names, insertion order
}

func (d Draft) clone() Draft {
	d.Teachers = append([]string(nil), d.Teachers...)
	d.Students = append([]string(nil), d.Students...)
	return d
}

type State struct {
	Step         Step
	Draft        Draft
	TeacherInput string
	StudentInput string
	Token        string
	TokenValid   bool
	Loading      bool
	Notification Notification
}

// NewState starts a session from the verification token found in the inbound link.
// Without a token the state is terminally invalid: step content is suppressed and only
// the error notification remains.
func NewState(token string) State {
	token = strings.TrimSpace(token)
	s := State{Step: FirstStep, Token: token, TokenValid: token != ""}
	if !s.TokenValid {
		s.Notification = errorNotification(MsgTokenMissing)
	}
	return s
}

// clone returns a copy of s that shares no slices with it.
func (s State) clone() State {
	s.Draft = s.Draft.clone()
	return s
}

func (s State) CanGoBack() bool { return s.TokenValid && s.Step > FirstStep }

func (s State) Next() State {
	if !s.TokenValid || s.Step >= LastStep {
		return s
	}
	s = s.clone()
	s.Step++
	return s
}

func (s State) Prev() State {
	if !s.CanGoBack() {
		return s
	}
	s = s.clone()
	s.Step--
	return s
}

// Skip moves to the next step. On the last step it leaves the state untouched and reports
// that the draft must be submitted instead.
func (s State) Skip() (next State, submit bool) {
	if s.TokenValid && s.Step == LastStep {
		return s, true
	}
	return s.Next(), false
}

func (s State) SetSchoolInfo(name, motto, address, logo string) State {
	if !s.TokenValid {
		return s
	}
	s = s.clone()
	s.Draft.SchoolName = name
	s.Draft.Motto = motto
	s.Draft.Address = address
	s.Draft.Logo = logo
	return s
}

func (s State) SetTeacherInput(v string) State {
	s.TeacherInput = v
	return s
}

func (s State) SetStudentInput(v string) State {
	s.StudentInput = v
	return s
}

func (s State) AddTeacher(email string) State {
	teachers, ok := addUnique(s.Draft.Teachers, email)
	if !s.TokenValid || !ok {
		return s
	}
	s = s.clone()
	s.Draft.Teachers = teachers
	s.TeacherInput = ""
	return s
}

func (s State) RemoveTeacher(email string) State {
	teachers, ok := remove(s.Draft.Teachers, email)
	if !s.TokenValid || !ok {
		return s
	}
	s = s.clone()
	s.Draft.Teachers = teachers
	return s
}

func (s State) AddStudent(name string) State {
	students, ok := addUnique(s.Draft.Students, name)
	if !s.TokenValid || !ok {
		return s
	}
	s = s.clone()
	s.Draft.Students = students
	s.StudentInput = ""
	return s
}

func (s State) RemoveStudent(name string) State {
	students, ok := remove(s.Draft.Students, name)
	if !s.TokenValid || !ok {
		return s
	}
	s = s.clone()
	s.Draft.Students = students
	return s
}

func (s State) DismissNotification() State {
	s.Notification = s.Notification.Dismiss()
	return s
}

// addUnique returns a new slice with v appended, or false when v is blank or already in list.
func addUnique(list []string, v string) ([]string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return list, false
	}
	for _, item := range list {
		if item == v {
			return list, false
		}
	}
	out := make([]string, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v), true
}

// remove returns a new slice without the first occurrence of v, or false when v is not in list.
func remove(list []string, v string) ([]string, bool) {
	for i, item := range list {
		if item == v {
			out := make([]string, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}
