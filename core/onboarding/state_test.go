package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewState(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantValid bool
		wantNotif Notification
	}{
		{name: "no token", wantNotif: Notification{Show: true, Message: MsgTokenMissing, Kind: KindError}},
		{name: "blank token", token: "   ", wantNotif: Notification{Show: true, Message: MsgTokenMissing, Kind: KindError}},
		{name: "token", token: "abc", wantValid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(tt.token)
			assert.Equal(t, tt.wantValid, s.TokenValid)
			assert.Equal(t, tt.wantNotif, s.Notification)
			assert.Equal(t, FirstStep, s.Step)
		})
	}
}

func TestState_InvalidTokenSuppressesSteps(t *testing.T) {
	s := NewState("")
	assert.Equal(t, FirstStep, s.Next().Step)
	assert.False(t, s.CanGoBack())
	assert.Empty(t, s.AddTeacher("t@example.com").Draft.Teachers)
	assert.Empty(t, s.SetSchoolInfo("A", "", "B", "").Draft.SchoolName)

	next, submit := s.Skip()
	assert.False(t, submit)
	assert.Equal(t, FirstStep, next.Step)
}

func TestState_Navigation(t *testing.T) {
	s := NewState("tok").SetSchoolInfo("Green Hill", "Learn", "1 Main St", "logo.png")
	assert.False(t, s.CanGoBack())
	assert.Equal(t, StepSchoolInfo, s.Prev().Step, "prev is a no-op on the first step")

	s = s.Next()
	assert.Equal(t, StepTeachers, s.Step)
	assert.True(t, s.CanGoBack())

	s = s.Next()
	assert.Equal(t, StepStudents, s.Step)
	assert.Equal(t, StepStudents, s.Next().Step, "next is a no-op on the last step")

	s = s.Prev()
	assert.Equal(t, StepTeachers, s.Step)
	assert.Equal(t, "Green Hill", s.Draft.SchoolName, "step changes keep the draft")
	assert.Equal(t, "1 Main St", s.Draft.Address)
}

func TestState_Skip(t *testing.T) {
	s := NewState("tok").SetSchoolInfo("Green Hill", "", "1 Main St", "").AddTeacher("t@example.com")
	draft := s.Draft

	s1, submit := s.Skip()
	assert.False(t, submit)
	assert.Equal(t, StepTeachers, s1.Step)
	assert.Equal(t, draft, s1.Draft)

	s2, submit := s1.Skip()
	assert.False(t, submit)
	assert.Equal(t, StepStudents, s2.Step)

	s3, submit := s2.Skip()
	assert.True(t, submit, "skip on the last step submits")
	assert.Equal(t, StepStudents, s3.Step)
	assert.Equal(t, draft, s3.Draft)
}

func TestState_Teachers(t *testing.T) {
	tests := []struct {
		name string
		ops  func(s State) State
		want []string
	}{
		{
			name: "duplicates kept once in first insertion order",
			ops: func(s State) State {
				return s.AddTeacher("a@x.com").AddTeacher("b@x.com").AddTeacher("a@x.com").AddTeacher("c@x.com").AddTeacher("b@x.com")
			},
			want: []string{"a@x.com", "b@x.com", "c@x.com"},
		},
		{
			name: "blank ignored",
			ops:  func(s State) State { return s.AddTeacher("").AddTeacher("   ") },
		},
		{
			name: "remove then add appends at the end",
			ops: func(s State) State {
				return s.AddTeacher("a@x.com").AddTeacher("b@x.com").RemoveTeacher("a@x.com").AddTeacher("a@x.com")
			},
			want: []string{"b@x.com", "a@x.com"},
		},
		{
			name: "remove missing is a no-op",
			ops:  func(s State) State { return s.AddTeacher("a@x.com").RemoveTeacher("z@x.com") },
			want: []string{"a@x.com"},
		},
		{
			name: "add, add again, remove empties the list",
			ops: func(s State) State {
				return s.AddTeacher("t@example.com").AddTeacher("t@example.com").RemoveTeacher("t@example.com")
			},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ops(NewState("tok")).Draft.Teachers
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_AddClearsInput(t *testing.T) {
	s := NewState("tok").SetTeacherInput("t@example.com").SetStudentInput("Jane Doe")

	s = s.AddTeacher(s.TeacherInput)
	assert.Equal(t, "", s.TeacherInput)
	assert.Equal(t, []string{"t@example.com"}, s.Draft.Teachers)

	s = s.AddStudent(s.StudentInput)
	assert.Equal(t, "", s.StudentInput)
	assert.Equal(t, []string{"Jane Doe"}, s.Draft.Students)

	// duplicate: the input is kept so the user can fix it
	s = s.SetStudentInput("Jane Doe").AddStudent("Jane Doe")
	assert.Equal(t, "Jane Doe", s.StudentInput)
}

func TestState_Students(t *testing.T) {
	s := NewState("tok").AddStudent("Jane").AddStudent("John").AddStudent("Jane")
	assert.Equal(t, []string{"Jane", "John"}, s.Draft.Students)

	s = s.RemoveStudent("Jane").AddStudent("Jane")
	assert.Equal(t, []string{"John", "Jane"}, s.Draft.Students)

	s = s.RemoveStudent("nobody")
	assert.Equal(t, []string{"John", "Jane"}, s.Draft.Students)
}

func TestState_NoAliasing(t *testing.T) {
	base := NewState("tok").AddTeacher("a@x.com").AddTeacher("b@x.com")
	before := append([]string(nil), base.Draft.Teachers...)

	_ = base.RemoveTeacher("a@x.com")
	_ = base.AddTeacher("c@x.com")
	_ = base.Next()

	assert.Equal(t, before, base.Draft.Teachers)
}

func TestNotification_Dismiss(t *testing.T) {
	n := errorNotification("Token expired")
	d := n.Dismiss()
	assert.False(t, d.Show)
	assert.Equal(t, "Token expired", d.Message)
	assert.Equal(t, KindError, d.Kind)

	s := NewState("").DismissNotification()
	assert.False(t, s.Notification.Show)
	assert.Equal(t, MsgTokenMissing, s.Notification.Message)
}
