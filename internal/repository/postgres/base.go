package postgres

import (
	"github.com/jmoiron/sqlx"
)

// BaseRepository carries the shared database handle. The concrete
// repositories embed it, so the API and the outbox worker each build
// their persistence layer from a single pool.
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}
