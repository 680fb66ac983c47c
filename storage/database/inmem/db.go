package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/surgepay/core/school"
	"github.com/trezcool/surgepay/core/user"
)

type (
	// DB is a process-local store used in debug mode without postgres and in tests.
	DB struct {
		user    *userTable
		school  *schoolTable
		student *studentTable
		token   *tokenTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTable struct {
		sync.RWMutex
		table map[string]*school.School
	}

	studentTable struct {
		sync.RWMutex
		table map[string][]school.Student // {schoolID: students}
	}

	tokenRecord struct {
		userID    string
		expiresAt time.Time
	}

	tokenTable struct {
		sync.Mutex
		table map[string]map[string]tokenRecord // {kind: {token: record}}
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		school:  &schoolTable{table: make(map[string]*school.School)},
		student: &studentTable{table: make(map[string][]school.Student)},
		token:   &tokenTable{table: make(map[string]map[string]tokenRecord)},
	}
}
