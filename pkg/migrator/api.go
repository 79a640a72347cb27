package migrator

import "context"

// Migrate applies the relauth schema to db. It is idempotent and safe to
// call on every application startup.
//
//	if err := migrator.Migrate(ctx, db); err != nil {
//	    log.Fatal().Err(err).Msg("migration failed")
//	}
func Migrate(ctx context.Context, db Execer) error {
	return New(db).Apply(ctx)
}
