package inmemdb

import (
	"sync"

	"github.com/shulelabs/shule/core/invite"
	"github.com/shulelabs/shule/core/school"
	"github.com/shulelabs/shule/core/user"
)

// DB is an in-process store for DEV/TEST; the schema mirrors the sqlx
// repositories.
type (
	DB struct {
		user       *userTable
		school     *schoolTable
		invitation *invitationTable
	}

	userTable struct {
		sync.RWMutex
		pkCount int64
		table   map[int64]*user.User
	}

	schoolTable struct {
		sync.RWMutex
		pkCount int64
		table   map[int64]*school.School
	}

	invitationTable struct {
		sync.RWMutex
		table map[string]*invite.Invitation
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int64]*user.User)},
		school:     &schoolTable{table: make(map[int64]*school.School)},
		invitation: &invitationTable{table: make(map[string]*invite.Invitation)},
	}
	return db, nil
}
