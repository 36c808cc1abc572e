// Package all wires every built-in warehouse backend into the storage
// factory. It exists purely for side effects: importing it runs the init
// functions that call storage.Register.
//
// Importing this package makes the following kinds available:
//
//   - "sqlite"    (aviation/internal/storage/sqlite)
//   - "postgres"  (aviation/internal/storage/postgres)
//   - "mssql"     (aviation/internal/storage/mssql)
//   - "mysql"     (aviation/internal/storage/mysql)
//   - "snowflake" (aviation/internal/storage/snowflake)
//
// A binary needing only a subset can import the backend packages directly.
package all

import (
	_ "aviation/internal/storage/mssql"
	_ "aviation/internal/storage/mysql"
	_ "aviation/internal/storage/postgres"
	_ "aviation/internal/storage/snowflake"
	_ "aviation/internal/storage/sqlite"
)
