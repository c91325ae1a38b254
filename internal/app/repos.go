package app

import (
	"gorm.io/gorm"

	appdb "github.com/yungbote/conceptdb/internal/data/db"
	"github.com/yungbote/conceptdb/internal/data/repos/imports"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

type Repos struct {
	ImportRuns imports.ImportRunRepo
}

func (a *App) openHistory() error {
	db, err := appdb.Open(appdb.Config{Driver: a.Cfg.History.Driver, DSN: a.Cfg.History.DSN}, a.Log)
	if err != nil {
		return err
	}
	a.DB = db
	return nil
}

// wireRepos leaves ImportRuns nil when history is disabled.
func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	if db == nil {
		return Repos{}
	}
	log.Info("Wiring repos...")
	return Repos{ImportRuns: imports.NewImportRunRepo(db, log)}
}
