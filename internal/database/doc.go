// Package database provides the PostgreSQL connection pool, migrations, and
// the session history repository.
package database
