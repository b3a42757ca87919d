// Package database provides SQLite connectivity for Intravision Core.
//
// It opens the database with WAL mode and a busy timeout, and applies
// versioned migrations read from an fs.FS (normally the embedded files in
// the migrations package).
//
// Usage:
//
//	db, err := database.Open(cfg.Journal.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. All queries use parameterised statements.
package database
