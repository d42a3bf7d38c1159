package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/habittracker/internal/dbx"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/dailies"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/habits"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/habittracker/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Habits(db dbx.DBTX) habits.Repository
	Dailies(db dbx.DBTX) dailies.Repository
	Tasks(db dbx.DBTX) tasks.Repository
}
